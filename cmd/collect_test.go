package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/startup-finder/internal/merge"
	"github.com/sells-group/startup-finder/internal/model"
)

func TestMergeOptions(t *testing.T) {
	opts, err := mergeOptions("")
	require.NoError(t, err)
	assert.Equal(t, merge.PreferIncoming, opts.Conflict)

	opts, err = mergeOptions("incoming")
	require.NoError(t, err)
	assert.Equal(t, merge.PreferIncoming, opts.Conflict)

	opts, err = mergeOptions("existing")
	require.NoError(t, err)
	assert.Equal(t, merge.PreferExisting, opts.Conflict)

	_, err = mergeOptions("loudest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loudest")
}

func TestFormatStartupList(t *testing.T) {
	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	s := model.NewStartup("Acme")
	s.FundingRound = "Seed"
	s.FundingAmount = "$5 million"
	s.Industry = "Robotics"
	s.FundingDate = &date
	s.Source = "Perplexity API"

	var buf bytes.Buffer
	formatStartupList(&buf, []model.Startup{s})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "Seed")
	assert.Contains(t, out, "$5 million")
	assert.Contains(t, out, "2024-06-10")
}
