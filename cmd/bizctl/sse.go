package main

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one dispatched server-sent event
type sseEvent struct {
	Name string
	ID   string
	Data string
}

// readEvents parses an event stream and calls fn per event until the stream
// ends or fn returns an error. Multi-line data fields are joined with "\n";
// comment lines are skipped.
func readEvents(r io.Reader, fn func(sseEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)

	var (
		ev   sseEvent
		data []string
		seen bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if seen {
				ev.Data = strings.Join(data, "\n")
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, data, seen = sseEvent{}, nil, false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		seen = true
		switch field {
		case "event":
			ev.Name = value
		case "id":
			ev.ID = value
		case "data":
			data = append(data, value)
		}
	}
	return scanner.Err()
}
