package interval_test

import (
	"testing"

	"github.com/glee-cse/glee/interval"
	"github.com/stretchr/testify/assert"
)

func TestInterval_Arithmetic(t *testing.T) {
	a, b := interval.New(1, 3), interval.New(1, 9)
	assert.Equal(t, interval.New(2, 12), a.Add(b))
	assert.Equal(t, interval.New(2, 12), b.Add(a))
	assert.Equal(t, interval.New(-8, 2), a.Sub(b))
	assert.Equal(t, interval.New(-2, 8), b.Sub(a))
	assert.Equal(t, interval.New(1, 27), a.Mul(b))
	assert.Equal(t, interval.New(1, 27), b.Mul(a))
	assert.Equal(t, interval.New(0, 3), a.Div(b))
	assert.Equal(t, interval.New(0, 9), b.Div(a))

	d, f := interval.New(-8, 2), interval.New(1, 27)
	assert.Equal(t, interval.New(-8*27, 2*27), d.Mul(f))
	assert.Equal(t, interval.New(-8, 2), d.Div(f))
	assert.True(t, f.Div(d).IsTop())

	assert.Equal(t, interval.New(1, 3), a.Meet(b))
	assert.Equal(t, interval.New(1, 9), a.Join(b))
}

func TestInterval_TopBot(t *testing.T) {
	a, top, bot := interval.New(1, 3), interval.Top(), interval.Bot()

	for _, got := range []interval.Interval{a.Add(top), top.Add(a), a.Sub(top), top.Sub(a), a.Mul(top), top.Mul(a), a.Div(top), top.Div(a), a.Join(top)} {
		assert.True(t, got.IsTop(), got.String())
	}
	assert.Equal(t, a, a.Meet(top))

	for _, got := range []interval.Interval{a.Add(bot), bot.Add(a), a.Sub(bot), bot.Sub(a), a.Mul(bot), bot.Mul(a), a.Div(bot), bot.Meet(a)} {
		assert.True(t, got.IsBot(), got.String())
	}
	assert.Equal(t, a, bot.Join(a))

	for _, got := range []interval.Interval{top.Add(bot), bot.Add(top), top.Sub(bot), top.Mul(bot), top.Div(bot), bot.Meet(top)} {
		assert.True(t, got.IsBot(), got.String())
	}
	assert.True(t, bot.Join(top).IsTop())
}

func TestInterval_Leq(t *testing.T) {
	a, b, c := interval.New(1, 3), interval.New(-5, 10), interval.New(2, 5)

	assert.True(t, a.Leq(b))
	assert.False(t, b.Leq(a))
	assert.False(t, a.Leq(c))
	assert.False(t, c.Leq(a))
	assert.True(t, c.Leq(b))
	assert.True(t, b.Leq(b))
	assert.True(t, interval.Bot().Leq(a))
	assert.True(t, b.Leq(interval.Top()))
}

func TestInterval_Widen(t *testing.T) {
	a, b, c := interval.New(1, 3), interval.New(-5, 10), interval.New(2, 5)

	assert.True(t, a.Widen(b).IsTop())
	assert.Equal(t, interval.New(1, interval.MAX), a.Widen(c))
	assert.Equal(t, interval.New(-5, 10), b.Widen(c))
	assert.Equal(t, a, interval.Bot().Widen(a))
}

func TestInterval_Equal(t *testing.T) {
	assert.True(t, interval.Bot().Equal(interval.New(5, 4)))
	assert.True(t, interval.Top().Equal(interval.New(interval.MIN, interval.MAX)))
	assert.False(t, interval.New(1, 2).Equal(interval.New(1, 3)))
}

func TestNew_Clamp(t *testing.T) {
	i := interval.New(interval.MIN-10, interval.MAX+10)
	assert.True(t, i.IsTop())
	assert.Equal(t, interval.Const(interval.MAX), interval.Const(interval.MAX).Mul(interval.Const(4)))
	assert.Equal(t, interval.Const(interval.MIN), interval.Const(interval.MAX).Mul(interval.Const(-4)))
}

func TestInterval_String(t *testing.T) {
	assert.Equal(t, "[-5,10]", interval.New(-5, 10).String())
	assert.Equal(t, "[-oo,+oo]", interval.Top().String())
	assert.Equal(t, "_|_", interval.Bot().String())
	assert.Equal(t, "[1,+oo]", interval.New(1, interval.MAX).String())
}
