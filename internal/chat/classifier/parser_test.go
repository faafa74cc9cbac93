package classifier

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk-core/server/internal/chat/model"
	errx "github.com/shoptalk-core/server/internal/core/error"
)

func TestParseClassificationHappyPath(t *testing.T) {
	content := `(intent<||>order_status<||>0.92)##
(intent<||>product_query<||>0.31)##
(slot<||>order_id<||>12345<||>0.88)##
(topic_switch<||>1)##
<|COMPLETE|>`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	require.Len(t, cls.Candidates, 2)
	assert.Equal(t, model.IntentOrderStatus, cls.Candidates[0].Intent)
	assert.InDelta(t, 0.92, cls.Candidates[0].Confidence, 1e-9)
	assert.Equal(t, map[string]string{"order_id": "12345"}, cls.Slots)
	assert.True(t, cls.TopicSwitch)
	assert.Empty(t, cls.Metadata["parsing_errors"])
}

func TestParseClassificationIgnoresTrailingTextAfterComplete(t *testing.T) {
	content := "(intent<||>product_query<||>0.8)##<|COMPLETE|>\nSure! Here is the analysis you asked for."

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	require.Len(t, cls.Candidates, 1)
	assert.Empty(t, cls.Metadata["parsing_errors"])
}

func TestParseClassificationSkipsMalformedRecords(t *testing.T) {
	content := `(intent<||>product_query<||>0.8)##
garbage without parens##
(intent<||>not_a_real_intent<||>0.9)##
(intent<||>order_status<||>1.7)##
(slot<||>brand)##
(wat<||>x<||>y)##
<|COMPLETE|>`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	require.Len(t, cls.Candidates, 1)
	assert.Equal(t, model.IntentProductQuery, cls.Candidates[0].Intent)

	errs, ok := cls.Metadata["parsing_errors"].([]string)
	require.True(t, ok)
	assert.Len(t, errs, 5)
}

func TestParseClassificationRejectsDuplicateIntent(t *testing.T) {
	content := `(intent<||>product_query<||>0.8)##(intent<||>product_query<||>0.6)##<|COMPLETE|>`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	assert.Len(t, cls.Candidates, 1)

	errs, _ := cls.Metadata["parsing_errors"].([]string)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "duplicate")
}

func TestParseClassificationNormalizesSlotKeys(t *testing.T) {
	content := `(intent<||>product_query<||>0.8)##
(slot<||>Max Price<||>150)##
(slot<||>product-type<||>running_shoes)##
<|COMPLETE|>`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	assert.Equal(t, "150", cls.Slots["max_price"])
	assert.Equal(t, "running_shoes", cls.Slots["product_type"])
}

func TestParseClassificationNewestSlotWins(t *testing.T) {
	content := `(intent<||>product_query<||>0.8)##(slot<||>size<||>10)##(slot<||>size<||>11)##<|COMPLETE|>`

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	assert.Equal(t, "11", cls.Slots["size"])
}

func TestParseClassificationNoIntentIsError(t *testing.T) {
	for _, content := range []string{
		"",
		"<|COMPLETE|>",
		"(slot<||>brand<||>Nike)##<|COMPLETE|>",
		"(intent<||>bogus<||>0.9)##<|COMPLETE|>",
	} {
		cls, err := ParseClassification(content)
		require.Error(t, err, "content %q", content)
		assert.Nil(t, cls)

		var appErr *errx.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadGateway, appErr.Status)
	}
}

func TestParseClassificationTruncatesOversizedContent(t *testing.T) {
	content := "(intent<||>product_query<||>0.8)##" + strings.Repeat("x", maxContentLen)

	cls, err := ParseClassification(content)
	require.NoError(t, err)
	assert.Equal(t, true, cls.Metadata["truncated"])
	require.Len(t, cls.Candidates, 1)
}

func TestParseClassificationCapsRecordCount(t *testing.T) {
	var b strings.Builder
	b.WriteString("(intent<||>product_query<||>0.8)##")
	for i := 0; i < maxRecords+10; i++ {
		b.WriteString("(slot<||>k<||>v)##")
	}

	cls, err := ParseClassification(b.String())
	require.NoError(t, err)
	assert.Equal(t, true, cls.Metadata["records_capped"])
}
