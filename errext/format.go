package errext

// Format formats the given error as a message (string) and a map of fields.
// Every hint found in the error tree is added to the "hint" field.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	fields := make(map[string]interface{})
	if hints := Hints(err); len(hints) > 0 {
		fields["hint"] = JoinHints(hints)
	}

	return err.Error(), fields
}
