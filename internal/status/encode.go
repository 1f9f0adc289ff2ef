// internal/status/encode.go
package status

import (
	"time"

	"github.com/tidwall/sjson"
)

// Encode renders a Snapshot as a JSON document.
// No IO. No side effects.
func Encode(s Snapshot) ([]byte, error) {
	doc := []byte(`{}`)
	var err error

	set := func(path string, value interface{}) {
		if err != nil {
			return
		}
		doc, err = sjson.SetBytes(doc, path, value)
	}

	set("version", s.Version)
	set("started_at", s.StartedAt.UTC().Format(time.RFC3339))
	set("uptime_seconds", int64(s.Uptime/time.Second))
	set("transport.accepted", s.Transport.Accepted)
	set("transport.active", s.Transport.Active)
	set("transport.bytes_in", s.Transport.BytesIn)
	set("transport.bytes_out", s.Transport.BytesOut)
	set("transport.dropped", s.Transport.Dropped)

	if err != nil {
		return nil, err
	}

	return doc, nil
}
