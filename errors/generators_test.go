package errors

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewResourceNotFoundError(t *testing.T) {
	type args struct {
		message string
		details Details
	}
	tests := []struct {
		name string
		args args
		want Error
	}{
		{
			name: "without details",
			args: args{
				message: "hello world",
				details: nil,
			},
			want: Error{
				Code:    ErrNotFound,
				Kind:    KindResourceNotFound,
				Err:     nil,
				Message: "hello world",
				Details: nil,
			},
		},
		{
			name: "with details",
			args: args{
				message: "hello world",
				details: Details{"hello": "world"},
			},
			want: Error{
				Code:    ErrNotFound,
				Kind:    KindResourceNotFound,
				Err:     nil,
				Message: "hello world",
				Details: Details{"hello": "world"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err, ok := Cast(NewResourceNotFoundError(tt.args.message, tt.args.details)); !ok || !reflect.DeepEqual(err, tt.want) {
				t.Errorf("NewResourceNotFoundError() error = %v, ok = %v, want %v, ok = %v", err, ok, tt.want, true)
			}
		})
	}
}

func TestNewExecQueryError(t *testing.T) {
	origErr := errors.New("connection reset")
	want := Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     origErr,
		Message: "exec query",
		Details: Details{"query": "SELECT 1"},
	}
	if err, ok := Cast(NewExecQueryError(origErr, "exec query", "SELECT 1")); !ok || !reflect.DeepEqual(err, want) {
		t.Errorf("NewExecQueryError() error = %v, ok = %v, want %v, ok = %v", err, ok, want, true)
	}
}

func TestNewInternalErrorFromErr(t *testing.T) {
	origErr := errors.New("boom")
	want := Error{
		Code:    ErrInternal,
		Err:     origErr,
		Message: "something exploded",
		Details: Details{"device_id": "dev-a"},
	}
	if err, ok := Cast(NewInternalErrorFromErr(origErr, "something exploded", Details{"device_id": "dev-a"})); !ok || !reflect.DeepEqual(err, want) {
		t.Errorf("NewInternalErrorFromErr() error = %v, ok = %v, want %v, ok = %v", err, ok, want, true)
	}
}
