package infra

import (
	"context"
	"testing"

	"cashpos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegisterCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRegisterCache()

	_, ok := c.GetRegisters(ctx)
	assert.False(t, ok)

	gen := c.Generation(ctx)
	c.SetRegisters(ctx, gen, []model.Register{{ID: 1, Name: "Front"}})
	regs, ok := c.GetRegisters(ctx)
	require.True(t, ok)
	assert.Equal(t, "Front", regs[0].Name)

	// callers get a copy
	regs[0].Name = "changed"
	regs, _ = c.GetRegisters(ctx)
	assert.Equal(t, "Front", regs[0].Name)

	c.Invalidate(ctx)
	_, ok = c.GetRegisters(ctx)
	assert.False(t, ok)
}

func TestMemoryRegisterCacheSkipsStaleWrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRegisterCache()

	gen := c.Generation(ctx)
	c.Invalidate(ctx)
	c.SetRegisters(ctx, gen, []model.Register{{ID: 1, Name: "old"}})
	_, ok := c.GetRegisters(ctx)
	assert.False(t, ok)

	c.SetRegisters(ctx, c.Generation(ctx), []model.Register{{ID: 1, Name: "new"}})
	regs, ok := c.GetRegisters(ctx)
	require.True(t, ok)
	assert.Equal(t, "new", regs[0].Name)
}
