package feed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, stream string) []sseEvent {
	t.Helper()

	var events []sseEvent
	err := readEvents(strings.NewReader(stream), func(ev sseEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	return events
}

func TestReadEvents(t *testing.T) {
	events := collect(t, ": keepalive\n"+
		"event: detection\n"+
		"data: {\"a\":1}\n"+
		"\n"+
		"event: stats\r\n"+
		"data:{\"b\":\r\n"+
		"data: 2}\r\n"+
		"\r\n"+
		"id: 7\n"+
		"retry: 100\n"+
		"data: plain\n"+
		"\n")

	require.Len(t, events, 3)
	assert.Equal(t, "detection", events[0].Name)
	assert.Equal(t, `{"a":1}`, string(events[0].Data))
	assert.Equal(t, "stats", events[1].Name)
	assert.Equal(t, "{\"b\":\n2}", string(events[1].Data))
	assert.Equal(t, "message", events[2].Name)
	assert.Equal(t, "plain", string(events[2].Data))
}

func TestReadEvents_IncompleteTrailingEvent(t *testing.T) {
	events := collect(t, "event: detection\ndata: {}\n\nevent: stats\ndata: {}\n")

	require.Len(t, events, 1)
	assert.Equal(t, "detection", events[0].Name)
}

func TestReadEvents_EventWithoutData(t *testing.T) {
	events := collect(t, "event: stats\n\nevent: detection\ndata: x\n\n")

	require.Len(t, events, 1)
	assert.Equal(t, "detection", events[0].Name)
}

func TestReadEvents_OversizedLineDropsOnlyItsEvent(t *testing.T) {
	huge := strings.Repeat("x", maxEventSize+10)
	events := collect(t, "event: detection\n"+
		"data: "+huge+"\n"+
		"data: tail\n"+
		"\n"+
		"event: stats\n"+
		"data: {\"compliance_rate\":95}\n"+
		"\n")

	require.Len(t, events, 1)
	assert.Equal(t, "stats", events[0].Name)
	assert.Equal(t, `{"compliance_rate":95}`, string(events[0].Data))
}

func TestReadEvents_LineAtSizeLimit(t *testing.T) {
	value := strings.Repeat("y", maxEventSize-len("data: "))
	events := collect(t, "data: "+value+"\r\n\r\n")

	require.Len(t, events, 1)
	assert.Equal(t, value, string(events[0].Data))
}
