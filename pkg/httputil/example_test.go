package httputil_test

import (
	"fmt"
	"net/http/httptest"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/httputil"
)

func ExampleWriteError() {
	req := httptest.NewRequest("GET", "/api/v1/datasets/missing/scene", nil)
	req = req.WithContext(httputil.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	httputil.WriteError(rec, req, nil, errs.New(errs.ErrCodeNotFound, "dataset %q", "missing"))

	fmt.Println(rec.Code)
	fmt.Print(rec.Body.String())
	// Output:
	// 404
	// {"error":{"code":"NOT_FOUND","message":"dataset \"missing\""},"request_id":"req-1"}
}

func ExampleQueryList() {
	req := httptest.NewRequest("GET", "/?switch=Inner1,Inner2&switch=Inner3", nil)
	fmt.Println(httputil.QueryList(req, "switch"))
	// Output: [Inner1 Inner2 Inner3]
}
