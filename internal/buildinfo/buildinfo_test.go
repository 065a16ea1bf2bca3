package buildinfo

import (
	"bytes"
	"testing"
)

func TestPrintBuildData(t *testing.T) {
	orig := buildVersion
	buildVersion = "1.2.3"
	t.Cleanup(func() { buildVersion = orig })

	var buf bytes.Buffer
	PrintBuildData(&buf)

	want := "Build version: 1.2.3\nBuild date: N/A\nBuild commit: N/A\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
	if Version() != "1.2.3" {
		t.Fatalf("Version() = %q", Version())
	}
}
