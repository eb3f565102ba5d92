package main

import "sort"

// customLabelSet holds the user defined labels attached to every metric.
// Names are kept sorted so descriptors and values line up.
type customLabelSet struct {
	names  []string
	values map[string]string
}

func newCustomLabelSet(labels map[string]string) *customLabelSet {
	cl := &customLabelSet{
		names:  make([]string, 0, len(labels)),
		values: make(map[string]string, len(labels)),
	}

	for name, value := range labels {
		cl.addLabel(name, value)
	}
	sort.Strings(cl.names)

	return cl
}

func (cl *customLabelSet) addLabel(name, value string) {
	if _, exists := cl.values[name]; !exists {
		cl.names = append(cl.names, name)
	}

	cl.values[name] = value
}

func (cl *customLabelSet) labelNames() []string {
	return cl.names
}

func (cl *customLabelSet) labelValues() []string {
	values := make([]string, len(cl.names))
	for i, name := range cl.names {
		values[i] = cl.values[name]
	}

	return values
}
