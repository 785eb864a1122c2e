package template

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atnf/askap-notifier/internal/model"
)

func TestRender(t *testing.T) {
	tpl, err := Parse("summary", `{{ .emoji }} [{{ .status | upper }}] {{ .alert.Event }} {{ join ", " .alert.Service }} -> {{ .channel }} {{ .color }}`)
	require.NoError(t, err)

	out, err := tpl.Render(Vars{
		Alert:   &model.Alert{Event: "Disk Full", Service: []string{"ingest", "storage"}},
		Status:  "open",
		Channel: "#askap",
		Color:   "#FF0000",
		Emoji:   ":rocket:",
	})
	require.NoError(t, err)
	require.Equal(t, ":rocket: [OPEN] Disk Full ingest, storage -> #askap #FF0000", out)
}

func TestRenderMissingKey(t *testing.T) {
	tpl, err := Parse("summary", `{{ .nothing }}|{{ .alert.Attributes.missing }}`)
	require.NoError(t, err)

	out, err := tpl.Render(Vars{Alert: &model.Alert{Attributes: model.Attributes{}}})
	require.NoError(t, err)
	require.Contains(t, out, "|")
}

func TestParseError(t *testing.T) {
	_, err := Parse("payload", `{{ if }}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "payload")
}

func TestRenderError(t *testing.T) {
	tpl, err := Parse("summary", `{{ .alert.Nope }}`)
	require.NoError(t, err)

	_, err = tpl.Render(Vars{Alert: &model.Alert{}})
	require.Error(t, err)
}
