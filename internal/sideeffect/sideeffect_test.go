package sideeffect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert.Nil(t, Run("noop", func() error { return nil }))

	w := Run("boom", func() error { return errors.New("it broke") })
	assert.NotNil(t, w)
	assert.Equal(t, "boom", w.Effect)
	assert.Equal(t, "it broke", w.Message)
}

func TestCollector(t *testing.T) {
	var c Collector

	c.Run("ok", func() error { return nil })
	assert.Nil(t, c.Warnings())

	c.Run("fail", func() error { return errors.New("nope") })
	c.Add("manual", "added directly")

	warnings := c.Warnings()
	assert.Len(t, warnings, 2)
	assert.Equal(t, "fail", warnings[0].Effect)
	assert.Equal(t, "manual", warnings[1].Effect)
}
