package sqrt

import (
	"time"

	"sqrt-go/internal/model"
)

// Settings holds the source locations and rules of every sync job.
type Settings struct {
	Activity   ActivitySettings
	Music      MusicSettings
	Sleep      SleepSettings
	Waka       WakaSettings
	Messengers MessengerSettings
	Youtube    YoutubeSettings
	Archive    ArchiveSettings
}

// ActivitySettings configures the ActivityWatch jobs.
type ActivitySettings struct {
	LogsFolder   string            // desktop bucket CSV exports
	AndroidFile  string            // Android JSON export, optional
	AppsConvert  map[string]string // app renames applied on load
	Rules        *AfkRules
	IntervalApps []string
	IntervalGap  time.Duration
}

// MusicSettings configures the MPD jobs.
type MusicSettings struct {
	LibraryFile string
	LogFolder   string
}

// SleepSettings configures the Sleep as Android job.
type SleepSettings struct {
	File   string
	Geos   map[string]string
	Policy SleepMergePolicy
}

// WakaSettings configures the WakaTime job.
type WakaSettings struct {
	DumpFolder string
}

// MessengerSettings configures the chat export job.
type MessengerSettings struct {
	TelegramFile    string
	TelegramExclude []int64
	VkFolder        string
	VkAuthor        string
	MappingFile     string
}

// YoutubeSettings locates the mpv watch logs.
type YoutubeSettings struct {
	MpvFolder string
}

// ArchiveSettings configures compression of processed inputs.
type ArchiveSettings struct {
	Root        string   // directory whose files are archived
	Days        int      // width of a modification-time group
	Timeout     int      // days after a group ends during which it stays open
	ExcludeDirs []string // relative directories never archived
}

// SqrtService is the orchestration layer that coordinates the warehouse,
// the input folders and the remote sources to perform the sync jobs.
type SqrtService struct {
	database  Database
	fsmgr     FilesystemManager
	vault     Vault
	encryptor Encryptor
	locator   LocationResolver
	fetcher   DumpFetcher
	videos    VideoCatalog
	settings  Settings
	hasher    *ContentHasher
	sync      *IncrementalSync
	logger    Logger
	clock     Clock
}

// NewSqrtService creates a new SqrtService with the provided dependencies.
// vault, encryptor and fetcher may be nil when the jobs that need them are
// not used. A nil locator leaves locations empty and timestamps unchanged.
func NewSqrtService(database Database, fsmgr FilesystemManager, vault Vault, encryptor Encryptor, locator LocationResolver, fetcher DumpFetcher, settings Settings, logger Logger, clock Clock) *SqrtService {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if settings.Activity.Rules == nil {
		settings.Activity.Rules = &AfkRules{}
	}
	hasher := NewContentHasher(database, fsmgr, logger)
	return &SqrtService{
		database:  database,
		fsmgr:     fsmgr,
		vault:     vault,
		encryptor: encryptor,
		locator:   locator,
		fetcher:   fetcher,
		settings:  settings,
		hasher:    hasher,
		sync:      NewIncrementalSync(hasher, logger),
		logger:    logger,
		clock:     clock,
	}
}

// SetVideoCatalog installs the YouTube lookup of the youtube job. Without
// one the job is skipped.
func (s *SqrtService) SetVideoCatalog(videos VideoCatalog) {
	s.videos = videos
}

// Hasher returns the content hasher used by the sync jobs.
func (s *SqrtService) Hasher() *ContentHasher {
	return s.hasher
}

// locate resolves the location of an event in place.
func (s *SqrtService) locate(e *model.BucketEvent) {
	if s.locator == nil {
		return
	}
	e.Location, e.Timestamp = s.locator.Resolve(e.Timestamp, e.Hostname)
}
