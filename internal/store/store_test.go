package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	cgo, err := OpenSQLite(DriverCGO, filepath.Join(dir, "cgo.db"))
	if err != nil {
		t.Fatalf("OpenSQLite(%s): %v", DriverCGO, err)
	}
	pure, err := OpenSQLite(DriverPure, filepath.Join(dir, "pure.db"))
	if err != nil {
		t.Fatalf("OpenSQLite(%s): %v", DriverPure, err)
	}
	mr := miniredis.RunT(t)
	rkv, err := OpenRedis(context.Background(), mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	kvs := map[string]KV{
		"memory":      NewMemoryKV(),
		"sqlite-cgo":  cgo,
		"sqlite-pure": pure,
		"redis":       rkv,
	}

	t.Cleanup(func() {
		for _, kv := range kvs {
			kv.Close()
		}
	})
	return kvs
}

func TestStore_TaskState(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			vid := "vid-" + name

			if _, err := s.TaskState(ctx, vid); !errors.Is(err, ErrNotFound) {
				t.Fatalf("TaskState on empty store: err = %v, want ErrNotFound", err)
			}

			want := TaskState{TaskID: "t1", Status: "processing", Progress: 0.4}
			if err := s.SaveTaskState(ctx, vid, want); err != nil {
				t.Fatalf("SaveTaskState: %v", err)
			}
			got, err := s.TaskState(ctx, vid)
			if err != nil {
				t.Fatalf("TaskState: %v", err)
			}
			if got.TaskID != "t1" || got.Status != "processing" || got.Progress != 0.4 {
				t.Errorf("TaskState = %+v", got)
			}
			if got.UpdatedAt.IsZero() {
				t.Error("UpdatedAt not stamped")
			}

			// Overwrite keeps the latest value.
			want.Status = "failed"
			want.ErrorMessage = "boom"
			if err := s.SaveTaskState(ctx, vid, want); err != nil {
				t.Fatal(err)
			}
			got, _ = s.TaskState(ctx, vid)
			if got.Status != "failed" || got.ErrorMessage != "boom" {
				t.Errorf("after overwrite = %+v", got)
			}
		})
	}
}

func TestStore_SubtitleAndStrategies(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			vid := "v-" + name

			if _, has, err := s.Strategies(ctx, vid); err != nil || has {
				t.Fatalf("Strategies on empty = has %v err %v", has, err)
			}

			srt := "1\n00:00:00,000 --> 00:00:01,000\nhi\n"
			if err := s.SaveSubtitle(ctx, vid, srt); err != nil {
				t.Fatal(err)
			}
			got, err := s.Subtitle(ctx, vid)
			if err != nil || got != srt {
				t.Fatalf("Subtitle = %q, %v", got, err)
			}

			if err := s.SaveStrategies(ctx, vid, Strategies{Strategies: []string{"keep names", "casual tone"}}); err != nil {
				t.Fatal(err)
			}
			st, has, err := s.Strategies(ctx, vid)
			if err != nil || !has {
				t.Fatalf("Strategies: has %v err %v", has, err)
			}
			if len(st.Strategies) != 2 || st.Strategies[1] != "casual tone" {
				t.Errorf("Strategies = %+v", st)
			}

			if err := s.ForgetVideo(ctx, vid); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Subtitle(ctx, vid); !errors.Is(err, ErrNotFound) {
				t.Errorf("Subtitle after ForgetVideo: %v", err)
			}
		})
	}
}

func TestStore_PositionAndSettings(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryKV())

	x, y, err := s.LoadPosition(ctx)
	if err != nil || x != 0 || y != 0 {
		t.Fatalf("default position = (%v,%v) %v", x, y, err)
	}
	if err := s.SavePosition(ctx, -12.5, 40); err != nil {
		t.Fatal(err)
	}
	x, y, _ = s.LoadPosition(ctx)
	if x != -12.5 || y != 40 {
		t.Errorf("position = (%v,%v), want (-12.5,40)", x, y)
	}

	if got := s.Setting(ctx, "language", "zh-CN"); got != "zh-CN" {
		t.Errorf("default setting = %q", got)
	}
	s.SetSetting(ctx, "language", "en")
	if got := s.Setting(ctx, "language", "zh-CN"); got != "en" {
		t.Errorf("setting = %q, want en", got)
	}
	s.SetSetting(ctx, "language", "")
	if got := s.Setting(ctx, "language", "zh-CN"); got != "zh-CN" {
		t.Errorf("cleared setting = %q, want default", got)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := OpenSQLite("postgres", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRedisKV_Expiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	kv, err := OpenRedis(ctx, mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer kv.Close()

	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := kv.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if ttl := mr.TTL(redisKeyPrefix + "k"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry: err = %v, want ErrNotFound", err)
	}

	if _, err := OpenRedis(ctx, "127.0.0.1:1", time.Minute); err == nil {
		t.Error("OpenRedis on a closed port did not fail")
	}
}
