package encodable_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

func TestPool(t *testing.T) {
	ns := testNamespace(t)
	pool := encodable.NewPool(&encodable.Config{Namespace: ns})

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			s := types.NewString("shared")
			v := types.NewArray(i, s, s, &rational{Num: i, Den: 1})

			buff := new(bytes.Buffer)
			if err := pool.Encode(buff, v, -1); err != nil {
				errs <- err
				return
			}
			got, err := pool.Decode(buff)
			if err != nil {
				errs <- err
				return
			}
			if !types.Equal(got, v) {
				t.Errorf("decoded %v, want %v", got, v)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestPoolBytes(t *testing.T) {
	pool := encodable.NewPool(nil)

	buff, err := pool.Append([]byte("prefix"), types.Symbol("a"), -1)
	td.Require(t).CmpNoError(err)
	td.Cmp(t, string(buff), "prefix"+header+":\x06a")

	v, err := pool.DecodeBytes(buff[len("prefix"):])
	td.CmpNoError(t, err)
	td.Cmp(t, v, types.Symbol("a"))

	td.Cmp(t, pool.String(), td.HasPrefix("Pool(Config("))
}
