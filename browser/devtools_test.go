package browser

import "testing"

func TestInspectorURL(t *testing.T) {
	cases := []struct {
		control, target, want string
	}{
		{
			"ws://127.0.0.1:9222/devtools/browser/abc", "T1",
			"http://127.0.0.1:9222/devtools/inspector.html?ws=127.0.0.1%3A9222%2Fdevtools%2Fpage%2FT1",
		},
		{
			"wss://remote.example:443/devtools/browser/x", "T2",
			"https://remote.example:443/devtools/inspector.html?wss=remote.example%3A443%2Fdevtools%2Fpage%2FT2",
		},
	}
	for _, tc := range cases {
		got, err := inspectorURL(tc.control, tc.target)
		if err != nil {
			t.Fatalf("%s: %v", tc.control, err)
		}
		if got != tc.want {
			t.Errorf("inspectorURL(%q, %q)\n got %s\nwant %s", tc.control, tc.target, got, tc.want)
		}
	}
}

func TestInspectorURL_Invalid(t *testing.T) {
	if _, err := inspectorURL("", "T1"); err == nil {
		t.Error("empty control url accepted")
	}
	if _, err := inspectorURL("ws://127.0.0.1:9222/devtools/browser/abc", ""); err == nil {
		t.Error("empty target accepted")
	}
}
