package utils

import (
	"os/user"
	"strconv"
	"strings"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
)

const defaultNameCacheSize = 1024

// NameResolver maps uid/gid to account names, caching both hits and misses.
type NameResolver struct {
	users       *lru.Cache[uint32, string]
	groups      *lru.Cache[uint32, string]
	lookupUser  func(uid string) (string, error)
	lookupGroup func(gid string) (string, error)
}

func NewNameResolver(size int) *NameResolver {
	if size <= 0 {
		size = defaultNameCacheSize
	}
	users, _ := lru.New[uint32, string](size)
	groups, _ := lru.New[uint32, string](size)
	return &NameResolver{
		users:  users,
		groups: groups,
		lookupUser: func(uid string) (string, error) {
			u, err := user.LookupId(uid)
			if err != nil {
				return "", err
			}
			return u.Username, nil
		},
		lookupGroup: func(gid string) (string, error) {
			g, err := user.LookupGroupId(gid)
			if err != nil {
				return "", err
			}
			return g.Name, nil
		},
	}
}

// NewStaticNameResolver resolves from fixed tables. Used in tests and on hosts
// where the account database is not the one the traced processes see.
func NewStaticNameResolver(users, groups map[uint32]string) *NameResolver {
	r := NewNameResolver(defaultNameCacheSize)
	r.lookupUser = staticLookup(users)
	r.lookupGroup = staticLookup(groups)
	return r
}

func staticLookup(table map[uint32]string) func(string) (string, error) {
	return func(id string) (string, error) {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return "", err
		}
		if name, ok := table[uint32(n)]; ok {
			return name, nil
		}
		return "", user.UnknownUserIdError(int(n))
	}
}

func (r *NameResolver) UserName(uid uint32) string {
	return resolve(r.users, r.lookupUser, uid, "uid")
}

func (r *NameResolver) GroupName(gid uint32) string {
	return resolve(r.groups, r.lookupGroup, gid, "gid")
}

func resolve(cache *lru.Cache[uint32, string], lookup func(string) (string, error), id uint32, kind string) string {
	if name, ok := cache.Get(id); ok {
		return name
	}
	name, err := lookup(strconv.FormatUint(uint64(id), 10))
	if err != nil {
		logger.L().Debug("NameResolver - unresolved id", helpers.String(kind, strconv.FormatUint(uint64(id), 10)), helpers.Error(err))
		name = ""
	}
	cache.Add(id, name)
	return name
}

// JoinArgs joins an argument vector with single spaces, preserving order.
func JoinArgs(args []string) string {
	return strings.Join(args, " ")
}
