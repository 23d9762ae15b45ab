package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func Test_queryFloat(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    float64
		wantErr bool
	}{
		{name: "missing uses fallback", query: "", want: 0.5, wantErr: false},
		{name: "number", query: "weight=102.5", want: 102.5, wantErr: false},
		{name: "negative", query: "weight=-1", want: -1, wantErr: false},
		{name: "not a number", query: "weight=heavy", want: 0, wantErr: true},
		{name: "NaN", query: "weight=NaN", want: 0, wantErr: true},
		{name: "infinity", query: "weight=Inf", want: 0, wantErr: true},
		{name: "negative infinity", query: "weight=-Inf", want: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/exercises/Squat/warmup?"+tt.query, nil)
			got, err := queryFloat(r, "weight", 0.5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("queryFloat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("queryFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
