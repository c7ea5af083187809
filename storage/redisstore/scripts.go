package redisstore

import "github.com/redis/go-redis/v9"

// KEYS[1] stock, KEYS[2] hold hash, KEYS[3] expiry zset
// ARGV[1] holder, ARGV[2] quantity, ARGV[3] created_at ms, ARGV[4] expires_at ms
// Returns {status, previous, available}; status 1 ok, -1 short, -2 unknown unit.
var holdScript = redis.NewScript(`
local stock = redis.call('get', KEYS[1])
if not stock then
    return {-2, 0, 0}
end
stock = tonumber(stock)
local prev = tonumber(redis.call('hget', KEYS[2], 'qty') or '0')
local qty = tonumber(ARGV[2])
if stock + prev < qty then
    return {-1, prev, stock}
end
local available = redis.call('incrby', KEYS[1], prev - qty)
redis.call('hset', KEYS[2], 'qty', qty, 'created_at', ARGV[3], 'expires_at', ARGV[4])
redis.call('zadd', KEYS[3], ARGV[4], ARGV[1])
return {1, prev, available}
`)

// KEYS[1] stock, KEYS[2] hold hash, KEYS[3] expiry zset
// ARGV[1] holder, ARGV[2] '1' to restore stock, ARGV[3] cutoff ms or empty
// With a cutoff the hold is removed only if expires_at <= cutoff.
// Returns the removed quantity, 0 if nothing was removed.
var removeScript = redis.NewScript(`
local qty = redis.call('hget', KEYS[2], 'qty')
if not qty then
    redis.call('zrem', KEYS[3], ARGV[1])
    return 0
end
if ARGV[3] ~= '' then
    local expires = tonumber(redis.call('hget', KEYS[2], 'expires_at'))
    if expires > tonumber(ARGV[3]) then
        return 0
    end
end
redis.call('del', KEYS[2])
redis.call('zrem', KEYS[3], ARGV[1])
if ARGV[2] == '1' then
    redis.call('incrby', KEYS[1], qty)
end
return tonumber(qty)
`)

// KEYS[1] stock; ARGV[1] delta
// Returns {status, available}; status 1 ok, -1 would go negative, -2 unknown unit.
var adjustScript = redis.NewScript(`
local stock = redis.call('get', KEYS[1])
if not stock then
    return {-2, 0}
end
stock = tonumber(stock)
local delta = tonumber(ARGV[1])
if stock + delta < 0 then
    return {-1, stock}
end
return {1, redis.call('incrby', KEYS[1], delta)}
`)
