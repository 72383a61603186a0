package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	base := r.Case("baseline")
	base.ObserveCompile(2 * time.Millisecond)
	base.ObserveCompile(3 * time.Millisecond)
	base.ObserveMaskFill(5 * time.Microsecond)
	r.Case("excl").ObserveCompile(4 * time.Millisecond)
	r.SetRules("baseline", 3)

	assert.Equal(t, 2, testutil.CollectAndCount(r.compile))
	assert.Equal(t, 1, testutil.CollectAndCount(r.maskFill))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rules.WithLabelValues("baseline")))

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "excludebench_compile_duration_seconds_count{case=\"baseline\"} 2")
	assert.Contains(t, out, "excludebench_grammar_rules{case=\"baseline\"} 3")
	assert.True(t, strings.HasPrefix(out, "# HELP"))
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	a.Case("x").ObserveCompile(time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(a.compile))
	assert.Equal(t, 0, testutil.CollectAndCount(b.compile))
}
