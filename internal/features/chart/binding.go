package chart

// minHeaders is the number of derived columns each chart type needs before a
// binding can be derived.
var minHeaders = map[ChartType]int{
	ChartTypeLine:      2,
	ChartTypeBar:       2,
	ChartTypeArea:      2,
	ChartTypeScatter:   2,
	ChartTypePie:       2,
	ChartTypeDonut:     2,
	ChartTypeHeatmap:   3,
	ChartTypeCycleplot: 3,
	ChartTypeHistogram: 1,
}

// Derive binds the ordered post-pivot headers onto the channels of t.
// Series beyond maxSeries are dropped and counted in skipped. ok is false
// when there are too few headers for t.
func Derive(t ChartType, headers []string, maxSeries int) (b Binding, skipped int, ok bool) {
	fields, known := channels[t]
	if !known || len(headers) < minHeaders[t] {
		return Binding{}, 0, false
	}

	for i, f := range fields {
		if f != FieldSeries {
			b.set(f, headers[i])
			continue
		}
		rest := headers[i:]
		if maxSeries > 0 && len(rest) > maxSeries {
			skipped = len(rest) - maxSeries
			rest = rest[:maxSeries]
		}
		b.SeriesConfigs = make([]SeriesConfig, 0, len(rest))
		for _, h := range rest {
			b.SeriesConfigs = append(b.SeriesConfigs, SeriesConfig{DataColumn: h, Name: h})
		}
	}
	return b, skipped, true
}

// Merge returns current with the channels of t replaced by derived. Fields
// belonging to other chart types are left alone.
func Merge(t ChartType, current, derived Binding) Binding {
	next := current.clone()
	for _, f := range channels[t] {
		if f == FieldSeries {
			next.SeriesConfigs = append([]SeriesConfig(nil), derived.SeriesConfigs...)
			continue
		}
		next.set(f, derived.get(f))
	}
	return next
}

// Equal compares the channels of t. Series are compared as a set keyed by
// data column, with each entry's name.
func Equal(t ChartType, a, b Binding) bool {
	for _, f := range channels[t] {
		if f == FieldSeries {
			if !sameSeries(a.SeriesConfigs, b.SeriesConfigs) {
				return false
			}
			continue
		}
		if a.get(f) != b.get(f) {
			return false
		}
	}
	return true
}

func sameSeries(a, b []SeriesConfig) bool {
	if len(a) != len(b) {
		return false
	}
	names := make(map[string]string, len(a))
	for _, s := range a {
		names[s.DataColumn] = s.Name
	}
	if len(names) != len(a) {
		return false
	}
	for _, s := range b {
		name, ok := names[s.DataColumn]
		if !ok || name != s.Name {
			return false
		}
	}
	return true
}

// Clear empties the channels of t. changed is false when nothing was set.
func Clear(t ChartType, b Binding) (next Binding, changed bool) {
	next = b.clone()
	for _, f := range channels[t] {
		if f == FieldSeries {
			if len(next.SeriesConfigs) > 0 {
				next.SeriesConfigs = nil
				changed = true
			}
			continue
		}
		if next.get(f) != "" {
			next.set(f, "")
			changed = true
		}
	}
	return next, changed
}

// dependents lists, per chart type, the fields that lose their meaning once
// the keyed field is cleared.
var dependents = map[ChartType]map[Field][]Field{
	ChartTypeLine:      {FieldXAxis: {FieldSeries}},
	ChartTypeBar:       {FieldXAxis: {FieldSeries}},
	ChartTypeArea:      {FieldXAxis: {FieldSeries}},
	ChartTypeScatter:   {FieldXAxis: {FieldSeries}},
	ChartTypePie:       {FieldLabel: {FieldValue}},
	ChartTypeDonut:     {FieldLabel: {FieldValue}},
	ChartTypeHeatmap:   {FieldXAxis: {FieldValue}, FieldYAxis: {FieldValue}},
	ChartTypeCycleplot: {FieldCycle: {FieldPeriod, FieldValue}},
}

// ClearSelection clears a single channel and every channel depending on it.
// ok is false when field is not a channel of t.
func ClearSelection(t ChartType, b Binding, field Field) (next Binding, ok bool) {
	if !hasChannel(t, field) {
		return b, false
	}
	next = b.clone()
	next.set(field, "")
	for _, dep := range dependents[t][field] {
		next.set(dep, "")
	}
	return next, true
}

func hasChannel(t ChartType, field Field) bool {
	for _, f := range channels[t] {
		if f == field {
			return true
		}
	}
	return false
}
