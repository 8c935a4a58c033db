package inference

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectEnumWeekdays(t *testing.T) {
	values := []string{}
	weekdays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for i := 0; i < 100; i++ {
		values = append(values, weekdays[i%len(weekdays)])
	}

	result := DetectEnum(values, DefaultEnumOptions())
	assert.True(t, result.ShouldCreateEnum)
	assert.Equal(t, CategoryStandardSet, result.Category)
	assert.Equal(t, ConfidenceHigh, result.Confidence)
	assert.ElementsMatch(t, weekdays, result.EnumValues)
}

func TestDetectEnumFreeTextIsNotEnum(t *testing.T) {
	sentences := []string{
		"the quick brown fox jumps", "over the lazy dog today", "a different sentence entirely",
		"yet another unique phrase here", "nothing repeats in this set", "every value below is distinct",
		"free text rarely repeats itself", "each sentence describes something new", "no two strings are alike",
		"this is just ordinary prose",
	}
	values := make([]string, 0, len(sentences)*6)
	for i := 0; i < 6; i++ {
		for _, s := range sentences {
			values = append(values, fmt.Sprintf("%s %d", s, i))
		}
	}

	result := DetectEnum(values, DefaultEnumOptions())
	assert.False(t, result.ShouldCreateEnum)
	assert.Equal(t, CategoryNotEnum, result.Category)
	assert.Equal(t, ConfidenceVeryLow, result.Confidence)
}

func TestDetectEnumLowCardinalityApplicationEnum(t *testing.T) {
	statuses := []string{"pending", "active", "completed", "cancelled"}
	values := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		values = append(values, statuses[i%len(statuses)])
	}

	result := DetectEnum(values, DefaultEnumOptions())
	assert.True(t, result.ShouldCreateEnum)
	assert.Equal(t, CategoryApplicationEnum, result.Category)
	assert.Equal(t, ConfidenceLow, result.Confidence)
}

func TestDetectEnumEmptyInput(t *testing.T) {
	result := DetectEnum(nil, DefaultEnumOptions())
	assert.False(t, result.ShouldCreateEnum)
	assert.Equal(t, CategoryNotEnum, result.Category)
}
