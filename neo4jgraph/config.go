package neo4jgraph

import "fmt"

// Environment variables used when a connection setting isn't given explicitly.
const (
	URIVariable      = "NEO4J_URI"
	UserVariable     = "NEO4J_USER"
	PasswordVariable = "NEO4J_PASSWORD"
)

// Config holds the settings needed to connect to Neo4j.
type Config struct {
	URI      string
	User     string
	Password string
}

// MissingCredentialError is returned when a setting is neither given
// explicitly nor set in the environment.
type MissingCredentialError struct {
	// Name is the setting, e.g. "user".
	Name string
	// Variable is the environment variable that would provide it.
	Variable string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("couldn't find neo4j %s, try setting the %s environment variable", e.Name, e.Variable)
}

// ResolveConfig fills in any empty settings of explicit from the environment,
// using lookup, e.g. os.LookupEnv. Settings are checked in the order user,
// URI, password, and the first missing one is returned as a
// *MissingCredentialError.
func ResolveConfig(explicit Config, lookup func(key string) (string, bool)) (Config, error) {
	resolved := explicit
	settings := []struct {
		name     string
		variable string
		value    *string
	}{
		{name: "user", variable: UserVariable, value: &resolved.User},
		{name: "uri", variable: URIVariable, value: &resolved.URI},
		{name: "password", variable: PasswordVariable, value: &resolved.Password},
	}
	for _, s := range settings {
		if *s.value != "" {
			continue
		}
		if v, ok := lookup(s.variable); ok && v != "" {
			*s.value = v
			continue
		}
		return Config{}, &MissingCredentialError{Name: s.name, Variable: s.variable}
	}
	return resolved, nil
}
