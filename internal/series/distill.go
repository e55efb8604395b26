package series

// Distill returns an identity holding only the attributes every input agrees on.
// The returned series carries no datapoints.
func Distill(in []*Series) *Series {
	out := &Series{Tags: make(map[string]string), Datapoints: make(Datapoints)}
	if len(in) == 0 {
		return out
	}

	first := in[0]
	out.Scope = first.Scope
	out.Name = first.Name
	out.DisplayName = first.DisplayName
	out.Units = first.Units
	for k, v := range first.Tags {
		out.Tags[k] = v
	}

	for _, s := range in[1:] {
		if s.Scope != out.Scope {
			out.Scope = ""
		}
		if s.Name != out.Name {
			out.Name = ""
		}
		if s.DisplayName != out.DisplayName {
			out.DisplayName = ""
		}
		if s.Units != out.Units {
			out.Units = ""
		}
		for k, v := range out.Tags {
			if other, ok := s.Tags[k]; !ok || other != v {
				delete(out.Tags, k)
			}
		}
	}
	return out
}

// DistillOrDefault distills the inputs and fills an empty scope or name with DefaultName.
func DistillOrDefault(in []*Series) *Series {
	out := Distill(in)
	if out.Scope == "" {
		out.Scope = DefaultName
	}
	if out.Name == "" {
		out.Name = DefaultName
	}
	return out
}
