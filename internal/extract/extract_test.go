package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_FencedBlock(t *testing.T) {
	completion := "Here are the tests.\n\n```python\nimport pytest\n\ndef test_add():\n    assert add(1, 2) == 3\n```\n\nLet me know if you need more."

	res, found := Extract(completion)

	assert.True(t, found)
	assert.Equal(t, "python", res.FenceTag)
	assert.Equal(t, "import pytest\n\ndef test_add():\n    assert add(1, 2) == 3\n", res.Code)
}

func TestExtract_FirstOfSeveralBlocks(t *testing.T) {
	completion := "```js\nfirst();\n```\nand also\n```js\nsecond();\n```"

	res, found := Extract(completion)

	assert.True(t, found)
	assert.Equal(t, "first();\n", res.Code)
}

func TestExtract_UnterminatedFence(t *testing.T) {
	completion := "Summary.\n```java\nclass CalcTest {\n}"

	res, found := Extract(completion)

	assert.True(t, found)
	assert.Equal(t, "java", res.FenceTag)
	assert.Equal(t, "class CalcTest {\n}\n", res.Code)
}

func TestExtract_NoFence(t *testing.T) {
	completion := "I could not produce a test file for this input."

	res, found := Extract(completion)

	assert.False(t, found)
	assert.Equal(t, completion, res.Code)
	assert.Empty(t, res.FenceTag)
}

func TestExtract_IndentedFence(t *testing.T) {
	completion := "  ```python\n  x = 1\n  ```"

	res, found := Extract(completion)

	assert.True(t, found)
	assert.Equal(t, "python", res.FenceTag)
	assert.Equal(t, "  x = 1\n", res.Code)
}

func TestExtract_EmptyCompletion(t *testing.T) {
	res, found := Extract("")

	assert.False(t, found)
	assert.Empty(t, res.Code)
}

func TestTestFileName(t *testing.T) {
	tests := []struct {
		src      string
		language string
		want     string
	}{
		{"examples/financial_calculator.py", "Python", "test_financial_calculator.py"},
		{"FinancialCalculator.java", "Java", "FinancialCalculatorTest.java"},
		{"lib/financial_calculator.js", "JavaScript", "financial_calculator.test.js"},
		{"src/calc.ts", "TypeScript", "calc.test.ts"},
		{"pkg/calc.go", "Go", "calc_test.go"},
		{"calc.rb", "Ruby", "calc_spec.rb"},
		{"Calc.cs", "C#", "CalcTests.cs"},
		{"script.lua", "Lua", "script_test.lua"},
		{"Makefile", "", "Makefile_test"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TestFileName(tt.src, tt.language), tt.src)
	}
}
