package database

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type priced struct {
	Price    decimal.Decimal  `bson:"price"`
	Original *decimal.Decimal `bson:"original,omitempty"`
}

func TestDecimalCodec_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	original := decimal.RequireFromString("29.90")
	in := priced{Price: decimal.RequireFromString("19.90"), Original: &original}

	raw, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.IsType(t, primitive.Decimal128{}, doc["price"])

	var out priced
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
	assert.True(t, in.Price.Equal(out.Price))
	require.NotNil(t, out.Original)
	assert.True(t, original.Equal(*out.Original))
}

func TestDecimalCodec_DecodesLegacyNumbers(t *testing.T) {
	reg := NewRegistry()

	for _, v := range []interface{}{14.5, "14.50", int32(14), int64(14)} {
		raw, err := bson.Marshal(bson.M{"price": v})
		require.NoError(t, err)

		var out priced
		require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
		assert.True(t, out.Price.GreaterThanOrEqual(decimal.NewFromInt(14)), "%v", v)
	}
}
