package resource

import "fmt"

// ErrorKind selects the failure message produced by Message.
type ErrorKind int

const (
	NotFound ErrorKind = iota
	Exists
)

// Message formats "<Label> [with <keyName> <key> ]<not found|already exists>".
// The key clause is left out when key is empty.
func Message(d Descriptor, kind ErrorKind, key string) string {
	suffix := "not found"
	if kind == Exists {
		suffix = "already exists"
	}
	if key == "" {
		return fmt.Sprintf("%s %s", d.Label, suffix)
	}
	return fmt.Sprintf("%s with %s %s %s", d.Label, d.KeyName, key, suffix)
}

func NotFoundMessage(d Descriptor, key string) string {
	return Message(d, NotFound, key)
}

func ExistsMessage(d Descriptor, key string) string {
	return Message(d, Exists, key)
}

func InvalidQueryParamMessage(param string) string {
	return "Invalid query parameter: " + param
}
