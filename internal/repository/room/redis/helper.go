package redis

import (
	"context"
	"reflect"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/lockstep/internal/repository/room"
)

const roomsKey = "rooms"

func (r repo) getPlayerKey(roomId string) string {
	return "room:" + roomId + ":player"
}

func (r repo) getPlaylistKey(roomId string) string {
	return "room:" + roomId + ":playlist"
}

func (r repo) getMembersKey(roomId string) string {
	return "room:" + roomId + ":members"
}

func (r repo) addWithIncrement(ctx context.Context, c redis.Scripter, key string, value interface{}) *redis.Cmd {
	return c.EvalSha(ctx, r.maxScoreScript, []string{key}, value)
}

func (r repo) expire(ctx context.Context, c redis.Cmdable, keys ...string) {
	if r.expireDuration <= 0 {
		return
	}

	for _, key := range keys {
		c.Expire(ctx, key, r.expireDuration)
	}
}

func (r repo) hSetStruct(ctx context.Context, c redis.Pipeliner, key string, value interface{}) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	fields := make(map[string]interface{})
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" {
			tag = t.Field(i).Name
		}

		if field.Kind() == reflect.Ptr && field.IsNil() {
			continue
		}

		if field.Kind() == reflect.Ptr {
			fields[tag] = field.Elem().Interface()
		} else {
			fields[tag] = field.Interface()
		}
	}

	c.HSet(ctx, key, fields)
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

func (r repo) checkRoomExists(ctx context.Context, roomId string) error {
	ok, err := r.rc.SIsMember(ctx, roomsKey, roomId).Result()
	if err != nil {
		return err
	}

	if !ok {
		return room.ErrRoomNotFound
	}

	return nil
}
