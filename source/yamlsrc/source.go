// Package yamlsrc turns a YAML document into the engine token stream so YAML
// input runs through the same enforcement and parsing path as JSON.
package yamlsrc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	eng "github.com/reoring/apimodel/internal/engine"
)

const maxNesting = 10000

// NewReader decodes the YAML document in r. The stream must hold exactly one
// document. Decode errors surface on the first NextToken call.
func NewReader(r io.Reader) eng.TokenSource {
	dec := yaml.NewDecoder(r)
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		return errSource{err: err}
	}
	var next yaml.Node
	switch err := dec.Decode(&next); {
	case err == nil:
		return errSource{err: fmt.Errorf("yaml: line %d: unexpected document after top-level value", next.Line)}
	case !errors.Is(err, io.EOF):
		return errSource{err: err}
	}
	return FromNode(&doc)
}

// NewBytes decodes the YAML document in b.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

// FromNode flattens an already decoded node. It backs yaml.Unmarshaler
// implementations that receive a *yaml.Node.
func FromNode(n *yaml.Node) eng.TokenSource {
	var w walker
	if err := w.walk(n, 0); err != nil {
		return errSource{err: err}
	}
	return eng.NewSliceSource(w.toks)
}

type errSource struct{ err error }

func (e errSource) NextToken() (eng.Token, error) { return eng.Token{}, e.err }
func (e errSource) Location() int64               { return -1 }

type walker struct {
	toks []eng.Token

	// nodes visited, and how many of them were reached through an alias
	nodes      int
	aliased    int
	aliasDepth int
}

// allowedAliasRatio matches the budget yaml.v3 applies when decoding into
// values: small documents may alias freely, large ones must be mostly literal.
func allowedAliasRatio(nodes int) float64 {
	switch {
	case nodes <= 400000:
		return 0.99
	case nodes >= 4000000:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(nodes-400000)/3600000)
	}
}

func (w *walker) emit(t eng.Token) {
	t.Offset = -1
	w.toks = append(w.toks, t)
}

func (w *walker) walk(n *yaml.Node, depth int) error {
	if depth > maxNesting {
		return fmt.Errorf("yaml: nesting deeper than %d", maxNesting)
	}
	w.nodes++
	if w.aliasDepth > 0 {
		w.aliased++
	}
	if w.aliased > 100 && w.nodes > 1000 && float64(w.aliased)/float64(w.nodes) > allowedAliasRatio(w.nodes) {
		return errors.New("yaml: document contains excessive aliasing")
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			w.emit(eng.Token{Kind: eng.KindNull})
			return nil
		}
		return w.walk(n.Content[0], depth)
	case yaml.AliasNode:
		if n.Alias == nil {
			return fmt.Errorf("yaml: line %d: unresolved alias %q", n.Line, n.Value)
		}
		w.aliasDepth++
		err := w.walk(n.Alias, depth+1)
		w.aliasDepth--
		return err
	case yaml.MappingNode:
		w.emit(eng.Token{Kind: eng.KindBeginObject})
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind == yaml.AliasNode && k.Alias != nil {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("yaml: line %d: mapping key must be a scalar", k.Line)
			}
			if k.ShortTag() == "!!merge" {
				return fmt.Errorf("yaml: line %d: merge keys are not supported", k.Line)
			}
			w.emit(eng.Token{Kind: eng.KindKey, String: k.Value})
			if err := w.walk(n.Content[i+1], depth+1); err != nil {
				return err
			}
		}
		w.emit(eng.Token{Kind: eng.KindEndObject})
		return nil
	case yaml.SequenceNode:
		w.emit(eng.Token{Kind: eng.KindBeginArray})
		for _, c := range n.Content {
			if err := w.walk(c, depth+1); err != nil {
				return err
			}
		}
		w.emit(eng.Token{Kind: eng.KindEndArray})
		return nil
	case yaml.ScalarNode:
		return w.scalar(n)
	}
	return fmt.Errorf("yaml: line %d: unexpected node kind %v", n.Line, n.Kind)
}

func (w *walker) scalar(n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		w.emit(eng.Token{Kind: eng.KindNull})
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		w.emit(eng.Token{Kind: eng.KindBool, Bool: b})
	case "!!int":
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		var lit string
		switch t := v.(type) {
		case int:
			lit = strconv.Itoa(t)
		case int64:
			lit = strconv.FormatInt(t, 10)
		case uint64:
			lit = strconv.FormatUint(t, 10)
		default:
			return fmt.Errorf("yaml: line %d: integer %q out of range", n.Line, n.Value)
		}
		w.emit(eng.Token{Kind: eng.KindNumber, Number: lit})
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("yaml: line %d: %q has no JSON representation", n.Line, n.Value)
		}
		w.emit(eng.Token{Kind: eng.KindNumber, Number: strconv.FormatFloat(f, 'g', -1, 64)})
	default:
		w.emit(eng.Token{Kind: eng.KindString, String: n.Value})
	}
	return nil
}
