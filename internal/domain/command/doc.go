// Package command parses compact command strings into dispatch requests.
//
// Grammar:
//
//	command := ["/"] service operation { token }
//	token   := "--db=" name | key "=" value | value
//
// Tokens are separated by whitespace. Single quotes group literally, double
// quotes group and honour backslash escapes. Text inside [] or {} is kept
// verbatim until the brackets balance, so JSON arrays and objects can be
// written without extra quoting. Values are decoded as JSON literals when
// they parse and kept as strings otherwise; quoted values always stay
// strings. Numbers decode as json.Number. Bare values are stored as
// arg0, arg1, ... in the order they appear; a key given twice, an explicit
// argN that collides with a bare value, or a repeated --db is rejected.
//
// Example:
//
//	params, err := command.Parse(`/postgres query --db=analytics sql="select 1" limit=10`)
package command
