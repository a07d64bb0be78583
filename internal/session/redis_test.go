package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	"robochat/internal/config"
	"robochat/internal/model"
	"robochat/internal/pkg/cache"
)

func newTestRedisStore(t *testing.T, mr *miniredis.Miniredis, ttl, lockTTL time.Duration) *RedisStore {
	t.Helper()
	c, err := cache.NewRedisCache(&config.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect miniredis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisStore(c, ttl, lockTTL)
}

func TestRedisStore(t *testing.T) {
	Convey("RedisStore 会话读写与进行中标记", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		store := newTestRedisStore(t, mr, time.Hour, time.Minute)

		Convey("未知会话返回空记录", func() {
			tr, err := store.Load(ctx, "missing")
			So(err, ShouldBeNil)
			So(tr.Len(), ShouldEqual, 0)
		})

		Convey("保存后按顺序读回并带过期时间", func() {
			tr := NewTranscript(
				model.NewMessage(model.RoleUser, "你好"),
				model.NewMessage(model.RoleAssistant, "收到"),
			)
			So(store.Save(ctx, "s1", tr), ShouldBeNil)
			So(mr.TTL(cache.SessionKey("s1")), ShouldEqual, time.Hour)

			got, err := store.Load(ctx, "s1")
			So(err, ShouldBeNil)
			msgs := got.Messages()
			So(len(msgs), ShouldEqual, 2)
			So(msgs[0].Role, ShouldEqual, model.RoleUser)
			So(msgs[0].Content, ShouldEqual, "你好")
			So(msgs[1].Content, ShouldEqual, "收到")
		})

		Convey("存储中含未知角色时读取失败", func() {
			So(mr.Set(cache.SessionKey("s1"), `[{"role":"robot","content":"x"}]`), ShouldBeNil)
			_, err := store.Load(ctx, "s1")
			So(err, ShouldNotBeNil)
		})

		Convey("同一会话只能获取一次，释放后可再次获取", func() {
			ok, err := store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(mr.TTL(cache.SessionBusyKey("s1")), ShouldEqual, time.Minute)

			ok, err = store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			ok, err = store.TryAcquire(ctx, "s2")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			So(store.Release(ctx, "s1"), ShouldBeNil)
			So(mr.Exists(cache.SessionBusyKey("s1")), ShouldBeFalse)

			ok, err = store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("另一个进程看到同一个进行中标记", func() {
			other := newTestRedisStore(t, mr, time.Hour, time.Minute)

			ok, err := store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			ok, err = other.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			So(other.Release(ctx, "s1"), ShouldBeNil)
			So(mr.Exists(cache.SessionBusyKey("s1")), ShouldBeTrue)
		})

		Convey("标记过期并被其他进程获取后，原持有者释放不影响新标记", func() {
			other := newTestRedisStore(t, mr, time.Hour, time.Minute)

			ok, err := store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			mr.FastForward(2 * time.Minute)

			ok, err = other.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			So(store.Release(ctx, "s1"), ShouldBeNil)
			So(mr.Exists(cache.SessionBusyKey("s1")), ShouldBeTrue)

			ok, err = store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Delete 同时清除记录与进行中标记", func() {
			So(store.Save(ctx, "s1", NewTranscript(model.NewMessage(model.RoleUser, "a"))), ShouldBeNil)
			ok, err := store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			So(store.Delete(ctx, "s1"), ShouldBeNil)
			So(mr.Exists(cache.SessionKey("s1")), ShouldBeFalse)
			So(mr.Exists(cache.SessionBusyKey("s1")), ShouldBeFalse)

			tr, err := store.Load(ctx, "s1")
			So(err, ShouldBeNil)
			So(tr.Len(), ShouldEqual, 0)

			ok, err = store.TryAcquire(ctx, "s1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})
	})
}
