package parse

import (
	"fmt"

	"github.com/tidwall/gjson"

	"sqrt-go/internal/model"
)

// Bucket types of the Android export that are loaded.
const (
	AndroidTypeCurrentWindow = "currentwindow"
	AndroidTypeUnlock        = "os.lockscreen.unlocks"
)

// AndroidExport holds the loaded buckets of an ActivityWatch Android export.
type AndroidExport struct {
	Windows []*model.AndroidWindowEvent
	Unlocks []*model.AndroidUnlockEvent
	Skipped []string // bucket IDs of unsupported types
}

// AndroidJSON parses the {"buckets": {...}} export of aw-android.
func AndroidJSON(data []byte) (*AndroidExport, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	buckets := gjson.GetBytes(data, "buckets")
	if !buckets.IsObject() {
		return nil, fmt.Errorf("missing buckets object")
	}

	export := &AndroidExport{}
	var err error
	buckets.ForEach(func(_, bucket gjson.Result) bool {
		bucketID := bucket.Get("id").String()
		hostname := bucket.Get("hostname").String()
		kind := bucket.Get("type").String()

		if kind != AndroidTypeCurrentWindow && kind != AndroidTypeUnlock {
			export.Skipped = append(export.Skipped, bucketID)
			return true
		}

		bucket.Get("events").ForEach(func(_, event gjson.Result) bool {
			ts, perr := Timestamp(event.Get("timestamp").String())
			if perr != nil {
				err = fmt.Errorf("bucket %s event %s: %w", bucketID, event.Get("id").String(), perr)
				return false
			}
			be := model.BucketEvent{
				ID:        fmt.Sprintf("%s-%s", bucketID, event.Get("id").String()),
				BucketID:  bucketID,
				Hostname:  hostname,
				Timestamp: ts,
				Duration:  event.Get("duration").Float(),
			}
			switch kind {
			case AndroidTypeCurrentWindow:
				export.Windows = append(export.Windows, &model.AndroidWindowEvent{
					BucketEvent: be,
					App:         event.Get("data.app").String(),
					Package:     event.Get("data.package").String(),
					ClassName:   event.Get("data.classname").String(),
				})
			case AndroidTypeUnlock:
				export.Unlocks = append(export.Unlocks, &model.AndroidUnlockEvent{BucketEvent: be})
			}
			return true
		})
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return export, nil
}
