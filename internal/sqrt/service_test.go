package sqrt_test

import (
	"context"
	"testing"
	"time"

	"sqrt-go/internal/database"
	"sqrt-go/internal/sqrt"
	"sqrt-go/internal/testutil"
	"sqrt-go/internal/vault"
)

// testEnv bundles a service with the fakes behind it.
type testEnv struct {
	svc     *sqrt.SqrtService
	db      *database.SQLiteDatabase
	fsmgr   *testutil.MockFilesystemManager
	vault   *vault.MemoryVault
	fetcher *testutil.StubDumpFetcher
	clock   *testutil.StubClock
}

func testSettings() sqrt.Settings {
	return sqrt.Settings{
		Activity: sqrt.ActivitySettings{
			LogsFolder:   "/data/aw/logs",
			AndroidFile:  "/data/aw/android/export.json",
			IntervalApps: []string{"mpv"},
			IntervalGap:  5 * time.Minute,
		},
		Music: sqrt.MusicSettings{
			LibraryFile: "/data/mpd/library.csv",
			LogFolder:   "/data/mpd/logs",
		},
		Sleep: sqrt.SleepSettings{
			File:   "/data/sleep/sleep-export.csv",
			Policy: sqrt.DefaultSleepMergePolicy(),
		},
		Waka: sqrt.WakaSettings{DumpFolder: "/data/waka"},
		Messengers: sqrt.MessengerSettings{
			TelegramFile: "/data/messengers/telegram/result.json",
			VkFolder:     "/data/messengers/vk",
			VkAuthor:     "Me",
			MappingFile:  "/data/messengers/mapping.csv",
		},
		Youtube: sqrt.YoutubeSettings{MpvFolder: "/data/youtube"},
		Archive: sqrt.ArchiveSettings{
			Root:    "/data",
			Days:    7,
			Timeout: 2,
		},
	}
}

// newTestEnv builds a service over an in-memory warehouse, filesystem and
// vault. modify may adjust the settings before the service is created.
func newTestEnv(t *testing.T, modify func(*sqrt.Settings)) *testEnv {
	t.Helper()

	settings := testSettings()
	if modify != nil {
		modify(&settings)
	}

	env := &testEnv{
		fsmgr:   testutil.NewMockFilesystemManager(),
		vault:   testutil.NewTestVault(),
		fetcher: &testutil.StubDumpFetcher{},
		clock:   testutil.FixedClock(),
	}
	env.db = testutil.NewTestDatabase(t, env.clock)
	env.svc = sqrt.NewSqrtService(env.db, env.fsmgr, env.vault, testutil.NewTestEncryptor(),
		nil, env.fetcher, settings, sqrt.NewNopLogger(), env.clock)
	return env
}

// count returns the stored rows of an ingest entity.
func (e *testEnv) count(t *testing.T, entity string) int64 {
	t.Helper()
	counts, err := e.db.TableCounts(context.Background())
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	n, ok := counts[entity]
	if !ok {
		t.Fatalf("unknown entity %q", entity)
	}
	return n
}

// resolve returns the resource of a file added to the mock filesystem.
func (e *testEnv) resolve(t *testing.T, path string) *sqrt.Resource {
	t.Helper()
	res, err := e.fsmgr.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve(%s) error = %v", path, err)
	}
	return res
}
