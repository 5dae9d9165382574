package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestCustomFormatter_Format(t *testing.T) {
	f := &CustomFormatter{SystemName: "workspaces-service"}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Event ID: TEST, Description: hello",
		Data:    logrus.Fields{"workspace": "w1", "client": "c1"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := string(out)

	for _, want := range []string{
		"Date: 2024-05-06, Time: 07:08:09, ",
		"Event Source: workspaces-service, ",
		"Event Type: WARNING, ",
		"Message: Event ID: TEST, Description: hello",
		", client: c1, workspace: w1",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("expected trailing newline")
	}
}
