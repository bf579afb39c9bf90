package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// toBSONDoc converts a generic map into an ordered BSON document,
// recursing into nested maps and arrays.
func toBSONDoc(m map[string]interface{}) bson.D {
	doc := bson.D{}
	for k, v := range m {
		if nestedMap, ok := v.(map[string]interface{}); ok {
			doc = append(doc, bson.E{Key: k, Value: toBSONDoc(nestedMap)})
		} else if nestedSlice, ok := v.([]interface{}); ok {
			doc = append(doc, bson.E{Key: k, Value: toBSONArray(nestedSlice)})
		} else {
			doc = append(doc, bson.E{Key: k, Value: v})
		}
	}
	return doc
}

// toBSONArray converts a generic slice into a BSON array.
func toBSONArray(slice []interface{}) interface{} {
	result := make(bson.A, len(slice))
	for i, v := range slice {
		if nestedMap, ok := v.(map[string]interface{}); ok {
			result[i] = toBSONDoc(nestedMap)
		} else if nestedSlice, ok := v.([]interface{}); ok {
			result[i] = toBSONArray(nestedSlice)
		} else {
			result[i] = v
		}
	}
	return result
}

// normalizeBSONTypes converts driver-specific BSON values into plain Go
// types so results serialize cleanly to JSON.
func normalizeBSONTypes(doc map[string]interface{}) {
	for k, v := range doc {
		switch val := v.(type) {
		case bson.ObjectID:
			doc[k] = val.Hex()
		case bson.DateTime:
			doc[k] = time.Unix(0, int64(val)*int64(time.Millisecond)).Format(time.RFC3339)
		case bson.Binary:
			doc[k] = string(val.Data)
		case bson.Decimal128:
			doc[k] = val.String()
		case bson.D:
			nestedMap := make(map[string]interface{})
			for _, elem := range val {
				nestedMap[elem.Key] = elem.Value
			}
			normalizeBSONTypes(nestedMap)
			doc[k] = nestedMap
		case bson.A:
			arr := make([]interface{}, len(val))
			for i, item := range val {
				arr[i] = item
				if nestedDoc, ok := item.(map[string]interface{}); ok {
					normalizeBSONTypes(nestedDoc)
				}
			}
			doc[k] = arr
		case map[string]interface{}:
			normalizeBSONTypes(val)
		case []interface{}:
			for i, item := range val {
				if nestedDoc, ok := item.(map[string]interface{}); ok {
					normalizeBSONTypes(nestedDoc)
					val[i] = nestedDoc
				}
			}
		}
	}
}
