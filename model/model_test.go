package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/idmap"
)

func TestMergeNotifiesChangedAttrsOnly(t *testing.T) {
	m := New("id")
	require.NoError(t, m.Merge(idmap.Attrs{"name": "Ada"}))

	var got []any
	m.Observe("name", "s1", func(v any) { got = append(got, v) })

	require.NoError(t, m.Merge(idmap.Attrs{"name": "Ada"}))
	require.NoError(t, m.Set("email", "ada@example.com"))
	require.NoError(t, m.Set("name", "Grace"))

	assert.Equal(t, []any{"Grace"}, got)
	assert.Equal(t, "ada@example.com", m.Get("email"))
}

func TestUnobserveRemovesOnlyItsScope(t *testing.T) {
	m := New("id")
	var a, b int
	m.Observe("id", "a", func(any) { a++ })
	m.Observe("id", "b", func(any) { b++ })
	m.Observe("name", "a", func(any) { a++ })

	m.Unobserve("a")
	require.NoError(t, m.Merge(idmap.Attrs{"id": 1, "name": "x"}))

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestObserverMayCallBack(t *testing.T) {
	m := New("id")
	scope := new(int)
	m.Observe("id", scope, func(v any) {
		m.Unobserve(scope)
		_ = m.Set("seen", v)
	})
	require.NoError(t, m.Set("id", 7))
	assert.Equal(t, 7, m.Get("seen"))
	assert.Equal(t, 7, m.ID())
}

func TestValidateRejectsMerge(t *testing.T) {
	errBad := errors.New("name required")
	m := New("id", WithValidate(func(next idmap.Attrs) error {
		if next["name"] == "" {
			return errBad
		}
		return nil
	}))
	require.NoError(t, m.Set("name", "Ada"))
	assert.ErrorIs(t, m.Set("name", ""), errBad)
	assert.Equal(t, "Ada", m.Get("name"))
}

func TestConstructorParse(t *testing.T) {
	upper := WithParse(func(raw idmap.Attrs) (idmap.Attrs, error) {
		out := idmap.Attrs{}
		for k, v := range raw {
			if s, ok := v.(string); ok {
				v = strings.ToUpper(s)
			}
			out[k] = v
		}
		return out, nil
	})
	ctor := Constructor("id", upper)

	m, err := ctor(idmap.Attrs{"id": 1, "name": "ada"}, &idmap.ConstructOptions{Parse: true})
	require.NoError(t, err)
	assert.Equal(t, "ADA", m.Get("name"))

	m, err = ctor(idmap.Attrs{"id": 1, "name": "ada"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ada", m.Get("name"))
}

func TestConstructorPropagatesErrors(t *testing.T) {
	errParse := errors.New("bad payload")
	ctor := Constructor("id", WithParse(func(idmap.Attrs) (idmap.Attrs, error) { return nil, errParse }))
	_, err := ctor(idmap.Attrs{"id": 1}, &idmap.ConstructOptions{Parse: true})
	assert.ErrorIs(t, err, errParse)
}

func TestAttributesIsCopy(t *testing.T) {
	m := New("id")
	require.NoError(t, m.Merge(idmap.Attrs{"id": 1}))
	a := m.Attributes()
	a["id"] = 2
	assert.Equal(t, 1, m.ID())
}
