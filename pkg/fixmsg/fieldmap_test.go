package fixmsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSchema struct {
	ordered bool
	order   []int
	groups  map[int]Schema
}

func (s *stubSchema) Ordered() bool          { return s.ordered }
func (s *stubSchema) CanonicalOrder() []int  { return s.order }
func (s *stubSchema) GroupSchema(tag int) Schema {
	if s.groups == nil {
		return nil
	}
	return s.groups[tag]
}

func TestSetFieldRespectsCanonicalOrder(t *testing.T) {
	spec := &stubSchema{ordered: true, order: []int{8, 9, 35, 49, 56}}
	fm := NewFieldMap(spec)

	fm.SetField(56, "EXCHANGE", true)
	fm.SetField(8, "FIX.4.2", true)
	fm.SetField(35, "A", true)
	fm.SetField(49, "CLIENT", true)

	require.Equal(t, []int{8, 35, 49, 56}, fm.Tags())
}

func TestSetFieldUnorderedAppends(t *testing.T) {
	fm := NewFieldMap(nil)
	fm.SetField(56, "EXCHANGE", true)
	fm.SetField(8, "FIX.4.2", true)
	require.Equal(t, []int{56, 8}, fm.Tags())
}

func TestRemoveFieldIdempotent(t *testing.T) {
	fm := NewFieldMap(nil)
	fm.SetField(1, "x", false)
	fm.RemoveField(1)
	fm.RemoveField(1)
	_, err := fm.GetField(1)
	require.Error(t, err)
}

func TestAddGroupAndToWire(t *testing.T) {
	child := &stubSchema{ordered: true, order: []int{448, 447}}
	spec := &stubSchema{ordered: true, order: []int{453}, groups: map[int]Schema{453: child}}
	fm := NewFieldMap(spec)

	g1 := fm.AddGroup(453)
	g1.SetField(448, "A", true)
	g2 := fm.AddGroup(453)
	g2.SetField(448, "B", true)

	require.Equal(t, 2, fm.GroupCount(453))
	wire := string(fm.ToWire(1))
	require.Equal(t, "453=2\x01448=A\x01448=B\x01", wire)
}

func TestTypedAccessors(t *testing.T) {
	fm := NewFieldMap(nil)
	fm.SetInt(34, 7, false)
	n, err := fm.GetInt(34)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	fm.SetBool(43, true, false)
	b, err := fm.GetBool(43)
	require.NoError(t, err)
	require.True(t, b)

	_, err = fm.GetInt(999)
	require.Error(t, err)
}
