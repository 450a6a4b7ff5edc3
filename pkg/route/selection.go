package route

import (
	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/model"
)

// idKeys are the names upstream output has been seen to use for challenge IDs.
var idKeys = []string{"id", "chlgID", "challengeId", "challenge_id", "chlg_id"}

// Selection is the parsed output of the candidate selection stage.
type Selection struct {
	Order     []string
	Overrides map[string]Override
	Travel    string
}

// ParseSelection reads a selection object. The order comes from "route_order",
// or from the listed "selected_challenges" when that is absent.
func ParseSelection(obj map[string]any) Selection {
	sel := Selection{Overrides: make(map[string]Override)}

	var listed []string
	if objs, ok := llm.Objects(obj, "selected_challenges", "challenges", "selected"); ok {
		for _, o := range objs {
			id, ok := llm.String(o, idKeys...)
			if !ok || id == "" {
				continue
			}
			listed = append(listed, id)
			if _, dup := sel.Overrides[id]; dup {
				continue
			}
			ov := Override{}
			ov.Title, _ = llm.String(o, "title")
			ov.Reason, _ = llm.String(o, "reason", "why")
			ov.Type, _ = llm.String(o, "type")
			ov.ExpectedDuration, _ = llm.String(o, "expected_duration", "duration")
			ov.Location, _ = llm.Strings(o, "location")
			sel.Overrides[id] = ov
		}
	}

	if order, ok := llm.Strings(obj, "route_order", "order"); ok && len(order) > 0 {
		sel.Order = order
	} else {
		sel.Order = listed
	}

	sel.Travel, _ = llm.String(obj, "estimated_travel_time", "travel_time")
	return sel
}

// FromSelection assembles a route from a selection object using the default options.
func FromSelection(obj map[string]any, catalog []model.Challenge) *model.Route {
	return Defaults().FromSelection(obj, catalog)
}

// FromSelection assembles a route from a selection object.
func (o Options) FromSelection(obj map[string]any, catalog []model.Challenge) *model.Route {
	sel := ParseSelection(obj)
	return o.Assemble(sel.Order, sel.Overrides, catalog, sel.Travel)
}
