package app

import (
	"fmt"
	"time"

	"sqrt-go/internal/config"
	"sqrt-go/internal/sqrt"
)

// SettingsFromConfig maps the config file sections onto the job settings.
func SettingsFromConfig(cfg *config.Config) (sqrt.Settings, error) {
	rules, err := sqrt.NewAfkRules(cfg.Aw.SkipAfkInterval, cfg.Aw.SkipAfkApps, cfg.Aw.SkipAfkTitles)
	if err != nil {
		return sqrt.Settings{}, fmt.Errorf("aw afk rules: %w", err)
	}
	policy, err := mergePolicy(cfg.Sleep.Merge)
	if err != nil {
		return sqrt.Settings{}, fmt.Errorf("sleep merge policy: %w", err)
	}

	return sqrt.Settings{
		Activity: sqrt.ActivitySettings{
			LogsFolder:   cfg.Aw.LogsFolder,
			AndroidFile:  cfg.Aw.AndroidFile,
			AppsConvert:  cfg.Aw.AppsConvert,
			Rules:        rules,
			IntervalApps: cfg.Aw.AppInterval.Apps,
			IntervalGap:  time.Duration(cfg.Aw.AppInterval.Interval) * time.Second,
		},
		Music: sqrt.MusicSettings{
			LibraryFile: cfg.Mpd.LibraryCSV,
			LogFolder:   cfg.Mpd.LogFolder,
		},
		Sleep: sqrt.SleepSettings{
			File:   cfg.Sleep.File,
			Geos:   cfg.Sleep.Geos,
			Policy: policy,
		},
		Waka: sqrt.WakaSettings{DumpFolder: cfg.Waka.DumpFolder},
		Messengers: sqrt.MessengerSettings{
			TelegramFile:    cfg.Messengers.TelegramFile,
			TelegramExclude: cfg.Messengers.TelegramExclude,
			VkFolder:        cfg.Messengers.VkFolder,
			VkAuthor:        cfg.Messengers.VkAuthor,
			MappingFile:     cfg.Messengers.MappingFile,
		},
		Youtube: sqrt.YoutubeSettings{MpvFolder: cfg.Youtube.MpvFolder},
		Archive: sqrt.ArchiveSettings{
			Root:        cfg.Archive.Root,
			Days:        cfg.Archive.Days,
			Timeout:     cfg.Archive.Timeout,
			ExcludeDirs: cfg.Archive.ExcludeDirs,
		},
	}, nil
}

// mergePolicy applies the configured picks over the default policy.
func mergePolicy(cfg config.SleepMergeConfig) (sqrt.SleepMergePolicy, error) {
	policy := sqrt.DefaultSleepMergePolicy()
	fields := []struct {
		name  string
		value string
		dst   *sqrt.Pick
	}{
		{"sched", cfg.Sched, &policy.Sched},
		{"comment", cfg.Comment, &policy.Comment},
		{"rating", cfg.Rating, &policy.Rating},
		{"framerate", cfg.Framerate, &policy.Framerate},
		{"geo", cfg.Geo, &policy.Geo},
		{"tz", cfg.Tz, &policy.Tz},
		{"len_adjust", cfg.LenAdjust, &policy.LenAdjust},
	}
	for _, f := range fields {
		switch f.value {
		case "":
		case "earlier":
			*f.dst = sqrt.PickEarlier
		case "later":
			*f.dst = sqrt.PickLater
		default:
			return policy, fmt.Errorf("%s: want \"earlier\" or \"later\", got %q", f.name, f.value)
		}
	}
	return policy, nil
}
