package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atnf/askap-notifier/internal/model"
)

func TestResolveDashboardDefaults(t *testing.T) {
	d := ResolveDashboard("High CPU Usage", nil)

	require.Equal(t, "High-CPU-Usage", d.ID)
	require.Equal(t, "high-cpu-usage", d.Name)
	require.Empty(t, d.Query())
}

func TestResolveDashboardOverride(t *testing.T) {
	d := ResolveDashboard("High CPU Usage", []string{"dashboard=myuid/My Dashboard", "region=west"})

	require.Equal(t, "myuid", d.ID)
	require.Equal(t, "My Dashboard", d.Name)
	require.Equal(t, "?var-region=west", d.Query())
}

func TestResolveDashboardOverrideWithoutName(t *testing.T) {
	d := ResolveDashboard("Disk Full", []string{"dashboard=abc123"})

	require.Equal(t, "abc123", d.ID)
	require.Equal(t, "disk-full", d.Name)
}

func TestDashboardQuery(t *testing.T) {
	d := ResolveDashboard("x", []string{"host=ingest01", "bogus", "dc=mro & pawsey"})

	require.Equal(t, "?var-host=ingest01&var-dc=mro+%26+pawsey", d.Query())
}

func TestDashboardLink(t *testing.T) {
	d := ResolveDashboard("High CPU Usage", []string{"host=ingest01", "dc=mro"})
	link := d.Link("http://grafana.example.org/")

	require.Equal(t, "http://grafana.example.org/d/High-CPU-Usage/high-cpu-usage?var-host=ingest01&var-dc=mro", link.URL)
	require.Equal(t, "High-CPU-Usage", link.Label)
}

func TestDashboardLinkAnchorRoundTrip(t *testing.T) {
	link := ResolveDashboard("Ingest Lag", []string{"dashboard=uid1/Ingest Overview", "beam=1"}).Link("http://grafana")

	parsed, ok := model.ParseAnchor(link.Anchor())
	require.True(t, ok)
	require.Equal(t, link, parsed)
}

func TestDashboardResolver(t *testing.T) {
	r := NewDashboardResolver("http://grafana", "kapacitor")

	link, ok := r.Resolve("kapacitor", "Disk Full", nil)
	require.True(t, ok)
	require.Equal(t, "http://grafana/d/Disk-Full/disk-full", link.URL)

	_, ok = r.Resolve("Grafana", "Disk Full", nil)
	require.False(t, ok)
}
