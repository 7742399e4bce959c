package harness

import (
	"io"
	"net/http"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// RequestObserver receives one result per completed request.
type RequestObserver interface {
	ObserveRequest(r *vegeta.Result)
}

// InstrumentedTransport reports every round trip to an observer so that
// requests made outside the attacker count towards the run metrics.
type InstrumentedTransport struct {
	next     http.RoundTripper
	observer RequestObserver
}

// NewInstrumentedTransport wraps next. A nil next uses http.DefaultTransport.
func NewInstrumentedTransport(next http.RoundTripper, observer RequestObserver) *InstrumentedTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &InstrumentedTransport{next: next, observer: observer}
}

// RoundTrip implements http.RoundTripper. A response is reported once its
// body has been read to the end or closed, so the latency covers receiving
// the body as well.
func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	began := time.Now()
	resp, err := t.next.RoundTrip(req)

	res := &vegeta.Result{
		Timestamp: began,
		Method:    req.Method,
		URL:       req.URL.String(),
	}
	if req.ContentLength > 0 {
		res.BytesOut = uint64(req.ContentLength)
	}
	if err != nil {
		res.Latency = time.Since(began)
		res.Error = err.Error()
		t.observer.ObserveRequest(res)
		return resp, err
	}

	res.Code = uint16(resp.StatusCode)
	resp.Body = &observedBody{ReadCloser: resp.Body, done: func(n uint64) {
		res.Latency = time.Since(began)
		res.BytesIn = n
		t.observer.ObserveRequest(res)
	}}
	return resp, nil
}

// observedBody calls done once, with the bytes read, at EOF or Close.
type observedBody struct {
	io.ReadCloser
	read uint64
	once sync.Once
	done func(read uint64)
}

func (b *observedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.read += uint64(n)
	if err == io.EOF {
		b.once.Do(func() { b.done(b.read) })
	}
	return n, err
}

func (b *observedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() { b.done(b.read) })
	return err
}
