package tsx

import (
	"net/http"

	"github.com/go-json-experiment/json"
)

// A returns a union holding a.
func (Union2[A, B]) A(a A) Union2[A, B] { return Union2[A, B]{value: a} }

// B returns a union holding b.
func (Union2[A, B]) B(b B) Union2[A, B] { return Union2[A, B]{value: b} }

// Value returns the held value.
func (u Union2[A, B]) Value() any { return u.value }

func (u Union2[A, B]) MarshalJSON() ([]byte, error) { return json.Marshal(u.value) }

func (Union3[A, B, C]) A(a A) Union3[A, B, C] { return Union3[A, B, C]{value: a} }
func (Union3[A, B, C]) B(b B) Union3[A, B, C] { return Union3[A, B, C]{value: b} }
func (Union3[A, B, C]) C(c C) Union3[A, B, C] { return Union3[A, B, C]{value: c} }
func (u Union3[A, B, C]) Value() any           { return u.value }

func (u Union3[A, B, C]) MarshalJSON() ([]byte, error) { return json.Marshal(u.value) }

func (Union4[A, B, C, D]) A(a A) Union4[A, B, C, D] { return Union4[A, B, C, D]{value: a} }
func (Union4[A, B, C, D]) B(b B) Union4[A, B, C, D] { return Union4[A, B, C, D]{value: b} }
func (Union4[A, B, C, D]) C(c C) Union4[A, B, C, D] { return Union4[A, B, C, D]{value: c} }
func (Union4[A, B, C, D]) D(d D) Union4[A, B, C, D] { return Union4[A, B, C, D]{value: d} }
func (u Union4[A, B, C, D]) Value() any              { return u.value }

func (u Union4[A, B, C, D]) MarshalJSON() ([]byte, error) { return json.Marshal(u.value) }

func (t Tuple2[A, B]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.First, t.Second})
}

func (t Tuple3[A, B, C]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.First, t.Second, t.Third})
}

func (t Tuple4[A, B, C, D]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.First, t.Second, t.Third, t.Fourth})
}

func (a Annotated[T, M]) MarshalJSON() ([]byte, error) { return json.Marshal(a.Value) }

func (a Annotated2[T, M1, M2]) MarshalJSON() ([]byte, error) { return json.Marshal(a.Value) }

// Write encodes the response body with its status code.
func (r Response[T]) Write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	return json.MarshalWrite(w, r.Body)
}

// DecodeBody reads the JSON request body into a Body. An empty body leaves
// the zero value.
func DecodeBody[T any](r *http.Request) (Body[T], error) {
	var b Body[T]
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return b, nil
	}
	err := json.UnmarshalRead(r.Body, &b.Value)
	return b, err
}
