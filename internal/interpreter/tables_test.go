package interpreter

import "testing"

func TestIsMultiNetworkSupported(t *testing.T) {
	cases := []struct {
		expr []string
		want bool
	}{
		{[]string{"start"}, true},
		{[]string{"Start"}, true},
		{[]string{"opdataset", "get", "active"}, true},
		{[]string{"opdataset", "set", "active"}, false},
		{[]string{"joiner", "enable"}, false},
	}
	for _, c := range cases {
		if got := IsMultiNetworkSupported(c.expr); got != c.want {
			t.Errorf("IsMultiNetworkSupported(%v) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestIsExportSupported(t *testing.T) {
	if !IsExportSupported([]string{"bbrdataset", "get"}) {
		t.Error("expected bbrdataset get to support export")
	}
	if IsExportSupported([]string{"start"}) {
		t.Error("expected start to not support export")
	}
}

func TestIsImportSupported(t *testing.T) {
	if !IsImportSupported([]string{"opdataset", "set", "active"}) {
		t.Error("expected opdataset set active to support import")
	}
	if IsImportSupported([]string{"opdataset", "set", "securitypolicy"}) {
		t.Error("expected opdataset set securitypolicy to not support import")
	}
}

func TestIsInactiveAllowed(t *testing.T) {
	if !IsInactiveAllowed([]string{"active"}) {
		t.Error("expected active to be inactive-allowed")
	}
	if IsInactiveAllowed([]string{"stop"}) {
		t.Error("expected stop to require an active session")
	}
}
