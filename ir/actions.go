package ir

import (
	"strconv"
	"strings"

	"github.com/packetpath/dataplane/action"
	"github.com/packetpath/dataplane/header"
)

// BuildActions builds every action-typed object in doc into an
// *action.Action, parsing its implementation text into the closed set
// of primitives (modify_field, add_header, remove_header, add_to_field,
// no_op) the way the original's action.py parses a semicolon-separated
// call list.
func BuildActions(doc *Document, wireHeaders map[string]*header.Descriptor) (map[string]*action.Action, error) {
	actions := make(map[string]*action.Action)

	for _, obj := range doc.ObjectsOfType("action") {
		var paramList []string
		if raw, ok := obj.Attrs["params"]; ok {
			list, err := toStringList(raw)
			if err != nil {
				return nil, configError(obj.Name, "params: %v", err)
			}
			paramList = list
		}

		impl, err := stringAttr(obj.Attrs, "implementation")
		if err != nil {
			return nil, configError(obj.Name, "%v", err)
		}

		primitives, paramRefs, err := parseActionImplementation(obj.Name, impl, wireHeaders)
		if err != nil {
			return nil, err
		}

		actions[obj.Name] = action.New(obj.Name, paramList, primitives, paramRefs)
	}

	return actions, nil
}

// parseActionImplementation splits impl on ";" (the trailing empty
// segment from the final statement's semicolon is dropped), parses each
// "prim_name(args)" call, and collects every raw argument string from
// every primitive into paramRefs — matching the original's own
// unconditional inclusion, which adds a few inert entries (add_header
// and remove_header's single header-name argument never resolves as a
// packet field reference; add_to_field's numeric literal never does
// either) but is otherwise harmless, so this mirrors it rather than
// special-casing it away.
func parseActionImplementation(actionName, impl string, wireHeaders map[string]*header.Descriptor) ([]action.Primitive, map[string]struct{}, error) {
	var primitives []action.Primitive
	paramRefs := make(map[string]struct{})

	calls := strings.Split(impl, ";")
	for _, call := range calls {
		call = strings.TrimSpace(strings.ReplaceAll(call, "\n", " "))
		call = strings.TrimSpace(call)
		if call == "" {
			continue
		}

		open := strings.Index(call, "(")
		if open < 0 || !strings.HasSuffix(call, ")") {
			return nil, nil, configError(actionName, "malformed primitive call %q", call)
		}
		name := strings.TrimSpace(call[:open])
		argsText := call[open+1 : len(call)-1]

		var args []string
		if strings.TrimSpace(argsText) != "" {
			for _, a := range strings.Split(argsText, ",") {
				args = append(args, strings.TrimSpace(a))
			}
		}
		for _, a := range args {
			paramRefs[a] = struct{}{}
		}

		prim, err := buildPrimitive(actionName, name, args, wireHeaders)
		if err != nil {
			return nil, nil, err
		}
		primitives = append(primitives, prim)
	}

	return primitives, paramRefs, nil
}

func buildPrimitive(actionName, name string, args []string, wireHeaders map[string]*header.Descriptor) (action.Primitive, error) {
	switch name {
	case "modify_field":
		if len(args) != 2 && len(args) != 3 {
			return nil, configError(actionName, "modify_field wants 2 or 3 args, got %d", len(args))
		}
		mask := ""
		if len(args) == 3 {
			mask = args[2]
		}
		return action.ModifyField{Destination: args[0], Source: args[1], Mask: mask}, nil

	case "add_header":
		if len(args) != 1 {
			return nil, configError(actionName, "add_header wants 1 arg, got %d", len(args))
		}
		desc, ok := wireHeaders[args[0]]
		if !ok {
			return nil, configError(actionName, "add_header references unknown header %q", args[0])
		}
		return action.AddHeader{HeaderRef: args[0], Desc: desc}, nil

	case "remove_header":
		if len(args) != 1 {
			return nil, configError(actionName, "remove_header wants 1 arg, got %d", len(args))
		}
		return action.RemoveHeader{HeaderRef: args[0]}, nil

	case "add_to_field":
		if len(args) != 2 {
			return nil, configError(actionName, "add_to_field wants 2 args, got %d", len(args))
		}
		// The second argument is always a construction-time literal
		// integer, never a dynamically-resolved reference: the original
		// converts it with int(self.value, 0) in __init__, before the
		// action ever sees a packet.
		v, err := strconv.ParseInt(strings.TrimSpace(args[1]), 0, 64)
		if err != nil {
			return nil, configError(actionName, "add_to_field: bad literal %q: %v", args[1], err)
		}
		return action.AddToField{FieldRef: args[0], Value: v}, nil

	case "no_op":
		if len(args) != 0 {
			return nil, configError(actionName, "no_op takes no args, got %d", len(args))
		}
		return action.NoOp{}, nil

	default:
		return nil, configError(actionName, "unknown action primitive %q", name)
	}
}
