// Package neo4jgraph is a localcluster.LocalGraph backed by a Neo4j database.
//
// Every relationship is treated as an undirected edge of weight 1, and nodes
// are identified by their internal Neo4j id. The queries use id() rather than
// elementId(): id() is deprecated in Neo4j 5 but is the only integer node
// identifier, and elementId() returns an opaque string.
package neo4jgraph

import (
	"context"
	"fmt"

	"github.com/a-h/localcluster"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Graph queries a Neo4j database one node at a time.
type Graph struct {
	driver neo4j.DriverWithContext
}

// Open connects to the database and checks that it can be reached.
func Open(ctx context.Context, cfg Config) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}
	if err = driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: failed to connect to %s: %w", cfg.URI, err)
	}
	return &Graph{driver: driver}, nil
}

// Close releases the connection to the database.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func (g *Graph) read(ctx context.Context, query string, params map[string]any, f func(record *neo4j.Record) error) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	for result.Next(ctx) {
		if err = f(result.Record()); err != nil {
			return err
		}
	}
	return result.Err()
}

// QueryID returns the id of a node whose property equals value. If several
// nodes match, any one of them is returned.
func (g *Graph) QueryID(ctx context.Context, property string, value any) (id int64, ok bool, err error) {
	query := `MATCH (n) WHERE n[$property] = $value RETURN id(n) AS id LIMIT 1`
	err = g.read(ctx, query, map[string]any{"property": property, "value": value}, func(record *neo4j.Record) error {
		id, err = int64Of(record, "id")
		ok = err == nil
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("neo4j: query id: %w", err)
	}
	return id, ok, nil
}

// QueryNodeLabels returns the labels of a node, or none if it doesn't exist.
func (g *Graph) QueryNodeLabels(ctx context.Context, id int64) (labels []string, err error) {
	query := `MATCH (n) WHERE id(n) = $id RETURN labels(n) AS labels`
	err = g.read(ctx, query, map[string]any{"id": id}, func(record *neo4j.Record) error {
		labels, err = stringsOf(record, "labels")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: query labels of %d: %w", id, err)
	}
	return labels, nil
}

// QueryProperty returns a property of a node. ok is false if the node or the
// property doesn't exist.
func (g *Graph) QueryProperty(ctx context.Context, id int64, property string) (value any, ok bool, err error) {
	query := `MATCH (n) WHERE id(n) = $id RETURN n[$property] AS value`
	err = g.read(ctx, query, map[string]any{"id": id, "property": property}, func(record *neo4j.Record) error {
		value, _ = record.Get("value")
		ok = value != nil
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("neo4j: query property %q of %d: %w", property, id, err)
	}
	return value, ok, nil
}

// Degree returns the number of relationships of a node, in either direction.
func (g *Graph) Degree(ctx context.Context, id int64) (float64, error) {
	degrees, err := g.Degrees(ctx, []int64{id})
	if err != nil {
		return 0, err
	}
	return degrees[0], nil
}

// Degrees looks up the degrees of many nodes in one query.
func (g *Graph) Degrees(ctx context.Context, ids []int64) ([]float64, error) {
	query := `UNWIND $ids AS i
WITH DISTINCT i
OPTIONAL MATCH (n) WHERE id(n) = i
OPTIONAL MATCH (n)-[r]-()
RETURN i AS id, count(r) AS degree`
	byID := make(map[int64]float64, len(ids))
	err := g.read(ctx, query, map[string]any{"ids": ids}, func(record *neo4j.Record) error {
		id, err := int64Of(record, "id")
		if err != nil {
			return err
		}
		degree, err := int64Of(record, "degree")
		if err != nil {
			return err
		}
		byID[id] = float64(degree)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: query degrees: %w", err)
	}
	degrees := make([]float64, len(ids))
	for i, id := range ids {
		degrees[i] = byID[id]
	}
	return degrees, nil
}

// Neighbors returns an edge for each relationship of a node, in either direction.
func (g *Graph) Neighbors(ctx context.Context, id int64) ([]localcluster.Edge, error) {
	query := `MATCH (n)-[r]-(m) WHERE id(n) = $id RETURN id(m) AS neighbor ORDER BY neighbor`
	var edges []localcluster.Edge
	err := g.read(ctx, query, map[string]any{"id": id}, func(record *neo4j.Record) error {
		to, err := int64Of(record, "neighbor")
		if err != nil {
			return err
		}
		edges = append(edges, localcluster.Edge{From: id, To: to, Weight: 1})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: query neighbors of %d: %w", id, err)
	}
	return edges, nil
}

func int64Of(record *neo4j.Record, key string) (int64, error) {
	v, ok := record.Get(key)
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	return asInt64(v)
}

func asInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func stringsOf(record *neo4j.Record, key string) ([]string, error) {
	v, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	return asStrings(v)
}

func asStrings(v any) ([]string, error) {
	switch v := v.(type) {
	case []string:
		return v, nil
	case []any:
		s := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, got %T at index %d", item, i)
			}
			s[i] = str
		}
		return s, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
}
