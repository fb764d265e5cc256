package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive comment",
		"event: connected",
		`data: {"stream_id":"s-1"}`,
		"",
		"event: snapshot",
		"id: 2",
		`data: {"collection":"invoices",`,
		`data: "snapshot":[]}`,
		"",
		"",
		"event: logout",
		"data:{}",
		"",
	}, "\n")

	var got []sseEvent
	err := readEvents(strings.NewReader(stream), func(ev sseEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []sseEvent{
		{Name: "connected", Data: `{"stream_id":"s-1"}`},
		{Name: "snapshot", ID: "2", Data: "{\"collection\":\"invoices\",\n\"snapshot\":[]}"},
		{Name: "logout", Data: "{}"},
	}, got)
}

func TestReadEvents_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := readEvents(strings.NewReader("event: a\n\nevent: b\n\n"), func(sseEvent) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadEvents_UnterminatedEventDropped(t *testing.T) {
	calls := 0
	err := readEvents(strings.NewReader("event: partial\ndata: {}"), func(sseEvent) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}
