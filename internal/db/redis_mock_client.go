package db

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	lua "github.com/yuin/gopher-lua"
)

// Implements the LimitedRedisClient interface
// Only suitable for testing and local development
// Expirations are ignored, keys live until they are deleted
// Contexts are completely ignored
// Scripts run on an embedded Lua interpreter while the store is locked, redis.call
// understands GET, SET (with XX), MSET, DEL and PEXPIRE
type MockRedisClient struct {
	lock  sync.Mutex
	store map[string]string
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]string{}}
}

func NewMockRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	return NewRedisAdapter(append([]RedisAdapterOption{WithRedisClient(NewMockRedisClient())}, options...)...)
}

func (m *MockRedisClient) del(keys ...string) int64 {
	var removed int64
	for _, k := range keys {
		if _, found := m.store[k]; found {
			delete(m.store, k)
			removed++
		}
	}
	return removed
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	res.SetVal(m.del(keys...))
	return &res
}

func (m *MockRedisClient) Ping(_ context.Context) *redis.StatusCmd {
	res := redis.StatusCmd{}
	res.SetVal("PONG")
	return &res
}

func (m *MockRedisClient) MGet(_ context.Context, keys ...string) *redis.SliceCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	output := make([]any, len(keys))
	for i, k := range keys {
		if val, found := m.store[k]; found {
			output[i] = val
		}
	}
	res := redis.SliceCmd{}
	res.SetVal(output)
	return &res
}

func (m *MockRedisClient) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.Cmd{}
	L := lua.NewState()
	defer L.Close()
	luaKeys := L.NewTable()
	for _, k := range keys {
		luaKeys.Append(lua.LString(k))
	}
	luaArgs := L.NewTable()
	for _, a := range args {
		luaArgs.Append(lua.LString(fmt.Sprint(a)))
	}
	L.SetGlobal("KEYS", luaKeys)
	L.SetGlobal("ARGV", luaArgs)
	redisModule := L.NewTable()
	L.SetField(redisModule, "call", L.NewFunction(m.call))
	L.SetGlobal("redis", redisModule)
	if err := L.DoString(script); err != nil {
		res.SetErr(err)
		return &res
	}
	if L.GetTop() == 0 {
		res.SetErr(redis.Nil)
		return &res
	}
	switch val := L.Get(1).(type) {
	case lua.LNumber:
		res.SetVal(int64(val))
	case lua.LString:
		res.SetVal(string(val))
	case lua.LBool:
		if !val {
			res.SetErr(redis.Nil)
			return &res
		}
		res.SetVal(int64(1))
	default:
		res.SetErr(redis.Nil)
	}
	return &res
}

// call runs one redis command for a script, the store is already locked by Eval
func (m *MockRedisClient) call(L *lua.LState) int {
	args := make([]string, L.GetTop())
	for i := range args {
		args[i] = L.ToString(i + 1)
	}
	if len(args) == 0 {
		L.RaiseError("ERR wrong number of arguments for redis.call")
		return 0
	}
	cmd := strings.ToUpper(args[0])
	args = args[1:]
	switch {
	case cmd == "GET" && len(args) == 1:
		val, found := m.store[args[0]]
		if !found {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LString(val))
	case cmd == "SET" && len(args) >= 2:
		onlyExisting := false
		for _, opt := range args[2:] {
			if strings.ToUpper(opt) == "XX" {
				onlyExisting = true
			}
		}
		if _, found := m.store[args[0]]; onlyExisting && !found {
			L.Push(lua.LFalse)
			return 1
		}
		m.store[args[0]] = args[1]
		L.Push(lua.LString("OK"))
	case cmd == "MSET" && len(args) > 0 && len(args)%2 == 0:
		for i := 0; i < len(args); i += 2 {
			m.store[args[i]] = args[i+1]
		}
		L.Push(lua.LString("OK"))
	case cmd == "DEL" && len(args) > 0:
		L.Push(lua.LNumber(m.del(args...)))
	case cmd == "PEXPIRE" && len(args) == 2:
		if _, found := m.store[args[0]]; found {
			L.Push(lua.LNumber(1))
		} else {
			L.Push(lua.LNumber(0))
		}
	default:
		L.RaiseError("ERR unsupported command or arguments: %s", cmd)
		return 0
	}
	return 1
}
