package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rpupo63/meetup-site-backend/errs"
)

func TestRecordViewIncrement(t *testing.T) {
	okBefore := testutil.ToFloat64(ViewIncrementsTotal.WithLabelValues("ok"))
	failedBefore := testutil.ToFloat64(ViewIncrementsTotal.WithLabelValues("failed"))

	RecordViewIncrement(nil)
	RecordViewIncrement(nil)
	RecordViewIncrement(errors.New("throttled"))

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ViewIncrementsTotal.WithLabelValues("ok")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(ViewIncrementsTotal.WithLabelValues("failed")))
}

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit"))
	RecordCacheLookup("hit")
	assert.Equal(t, before+1, testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit")))
}

func TestRecordStoreCall(t *testing.T) {
	StoreCallDuration.Reset()
	RecordStoreCall("list posts", 0.02, nil)
	RecordStoreCall("list posts", 0.5, errors.New("down"))

	// one series per outcome
	assert.Equal(t, 2, testutil.CollectAndCount(StoreCallDuration))
}

func TestRecordStoreCallOutcomes(t *testing.T) {
	StoreCallDuration.Reset()
	RecordStoreCall("find post by slug", 0.01, errs.NewNotFound("blog post"))
	RecordStoreCall("create post", 0.01, fmt.Errorf("insert: %w", errs.NewConflict("blog post", "slug", "taken")))
	RecordStoreCall("update post", 0.01, errs.NewStorageUnavailable("update post", errors.New("refused")))

	assert.True(t, StoreCallDuration.DeleteLabelValues("find post by slug", "not_found"))
	assert.False(t, StoreCallDuration.DeleteLabelValues("find post by slug", "error"))
	assert.True(t, StoreCallDuration.DeleteLabelValues("create post", "conflict"))
	assert.True(t, StoreCallDuration.DeleteLabelValues("update post", "error"))
	assert.Equal(t, 0, testutil.CollectAndCount(StoreCallDuration))
}
