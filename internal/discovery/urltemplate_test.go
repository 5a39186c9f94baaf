package discovery

import "testing"

func TestURLTemplateForPath(t *testing.T) {
	cases := map[string]string{
		"users/get.so":          "/users",
		"users/[id]/get.so":     "/users/{id}",
		"get.so":                "/",
		"a/[b]/c/[d]/delete.so": "/a/{b}/c/{d}",
	}
	for in, want := range cases {
		if got := urlTemplateForPath(in); got != want {
			t.Errorf("urlTemplateForPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMethodForStem(t *testing.T) {
	if m, ok := methodForStem("GET"); !ok || m != "GET" {
		t.Errorf("expected GET, got %v ok=%v", m, ok)
	}
	if _, ok := methodForStem("fetch"); ok {
		t.Errorf("expected fetch to be invalid")
	}
}

func TestIsExcluded(t *testing.T) {
	if !isExcluded("users/get.test.so") {
		t.Errorf("expected get.test.so to be excluded")
	}
	if !isExcluded("__tests__/helper.so") {
		t.Errorf("expected __tests__/ to be excluded")
	}
	if isExcluded("users/get.so") {
		t.Errorf("expected users/get.so to not be excluded")
	}
}
