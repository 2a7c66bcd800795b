/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package dsl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEvalExprLiterals(t *testing.T) {
	v, err := EvalExpr("1")
	require.NoError(t, err)
	require.Equal(t, float64(1), v)

	v, err = EvalExpr(`"hello"`)
	require.NoError(t, err)
	require.Equal(t, "hello", v)

	v, err = EvalExpr("true")
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = EvalExpr("[1, 2, 3]")
	require.NoError(t, err)
	if diff := cmp.Diff([]interface{}{float64(1), float64(2), float64(3)}, v); diff != "" {
		t.Errorf("list literal mismatch (-want +got):\n%s", diff)
	}

	v, err = EvalExpr("(1, 2)")
	require.NoError(t, err)
	if diff := cmp.Diff(Tuple{float64(1), float64(2)}, v); diff != "" {
		t.Errorf("tuple literal mismatch (-want +got):\n%s", diff)
	}

	v, err = EvalExpr(`{"a": 1, "b": "x"}`)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]interface{}{"a": float64(1), "b": "x"}, v); diff != "" {
		t.Errorf("dict literal mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalExprTrailingGarbage(t *testing.T) {
	_, err := EvalExpr("1 2")
	require.Error(t, err)
}

func TestReprRoundTrip(t *testing.T) {
	require.Equal(t, "1", Repr(float64(1)))
	require.Equal(t, "1.5", Repr(1.5))
	require.Equal(t, `"hi"`, Repr("hi"))
	require.Equal(t, "[1, 2]", Repr([]interface{}{float64(1), float64(2)}))
	require.Equal(t, "(1,)", Repr(Tuple{float64(1)}))
}

func TestParseNodeAndProperty(t *testing.T) {
	text := "/top\n" +
		"  a = 1\n" +
		"  b -> /other\n" +
		"  c => /other x\n" +
		"  /child\n" +
		"    d = \"hi\"\n"

	tree, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 1)

	top := tree.Nodes[0]
	require.Equal(t, "top", top.Name)
	require.Len(t, top.Properties, 1)
	require.Equal(t, "a", top.Properties[0].Name)
	require.Equal(t, float64(1), top.Properties[0].Value)

	require.Len(t, top.NodeLinks, 1)
	require.Equal(t, NodeLink{Name: "b", Target: "/other"}, top.NodeLinks[0])

	require.Len(t, top.PropertyLinks, 1)
	require.Equal(t, PropertyLink{Name: "c", Target: "/other", Field: "x"}, top.PropertyLinks[0])

	require.Len(t, top.Children, 1)
	child := top.Children[0]
	require.Equal(t, "child", child.Name)
	require.Equal(t, "d", child.Properties[0].Name)
	require.Equal(t, "hi", child.Properties[0].Value)
}

func TestParseDuplicateChildIsError(t *testing.T) {
	text := "/top\n/top\n"
	_, err := Parse(text)
	require.Error(t, err)
}

func TestParseDuplicatePropertyIsError(t *testing.T) {
	text := "/top\n  a = 1\n  a = 2\n"
	_, err := Parse(text)
	require.Error(t, err)
}

func TestParsePropertyOutsideNodeIsError(t *testing.T) {
	_, err := Parse("a = 1\n")
	require.Error(t, err)
}

func TestParseComment(t *testing.T) {
	text := "# a full-line comment\n/top  # trailing comment\n  a = 1 # another\n"
	tree, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 1)
	require.Equal(t, "top", tree.Nodes[0].Name)
	require.Equal(t, float64(1), tree.Nodes[0].Properties[0].Value)
}
