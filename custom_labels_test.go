package main

import (
	"reflect"
	"testing"
)

func Test_customLabelSet(t *testing.T) {
	tests := []struct {
		name       string
		labels     map[string]string
		wantNames  []string
		wantValues []string
	}{
		{
			"nil",
			nil,
			[]string{},
			[]string{},
		},
		{
			"sorted",
			map[string]string{"site": "home", "isp": "example", "link": "fiber"},
			[]string{"isp", "link", "site"},
			[]string{"example", "fiber", "home"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := newCustomLabelSet(tt.labels)
			if got := cl.labelNames(); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("labelNames() = %v, want %v", got, tt.wantNames)
			}
			if got := cl.labelValues(); !reflect.DeepEqual(got, tt.wantValues) {
				t.Errorf("labelValues() = %v, want %v", got, tt.wantValues)
			}
		})
	}
}
