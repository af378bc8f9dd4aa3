package metrics

import "testing"

func TestCollectorStartsHealthy(t *testing.T) {
	c := NewCollector()
	snap := c.Collect()
	if snap.OverallStatus != HealthStatusHealthy {
		t.Errorf("fresh collector status = %q, want %q", snap.OverallStatus, HealthStatusHealthy)
	}
}

func TestCollectorWarnsOnPartialReauthFailure(t *testing.T) {
	c := NewCollector()
	c.IncReauth()
	c.IncReauth()
	c.IncReauthFailure()

	snap := c.Collect()
	if snap.OverallStatus != HealthStatusWarning {
		t.Errorf("status with one failed reauth out of two = %q, want %q", snap.OverallStatus, HealthStatusWarning)
	}
	if snap.Proxy.Reauthentications != 2 || snap.Proxy.ReauthFailures != 1 {
		t.Errorf("proxy counters = %+v, want Reauthentications=2 ReauthFailures=1", snap.Proxy)
	}
}

func TestCollectorCriticalWhenAllReauthsFail(t *testing.T) {
	c := NewCollector()
	c.IncReauth()
	c.IncReauthFailure()

	snap := c.Collect()
	if snap.OverallStatus != HealthStatusCritical {
		t.Errorf("status with every reauth failing = %q, want %q", snap.OverallStatus, HealthStatusCritical)
	}
}

func TestCollectorCountersAreIndependent(t *testing.T) {
	c := NewCollector()
	c.IncLogin()
	c.IncPlaylistRequest()
	c.IncPlaylistRequest()
	c.IncSegmentRequest()
	c.IncSegmentRetry()
	c.IncUpstreamError()

	snap := c.Collect()
	if snap.Proxy.Logins != 1 {
		t.Errorf("Logins = %d, want 1", snap.Proxy.Logins)
	}
	if snap.Proxy.PlaylistRequests != 2 {
		t.Errorf("PlaylistRequests = %d, want 2", snap.Proxy.PlaylistRequests)
	}
	if snap.Proxy.SegmentRequests != 1 || snap.Proxy.SegmentRetries != 1 {
		t.Errorf("segment counters = %+v, want SegmentRequests=1 SegmentRetries=1", snap.Proxy)
	}
	if snap.Proxy.UpstreamErrors != 1 {
		t.Errorf("UpstreamErrors = %d, want 1", snap.Proxy.UpstreamErrors)
	}
}
