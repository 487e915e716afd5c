package pskt

import (
	"encoding/json"
	"fmt"
)

// requiredFields are the top-level fields a wallet refuses to sign without.
var requiredFields = []string{"id", "version", "inputs", "outputs", "lockTime"}

// ValidationResult carries per-field errors and non-fatal warnings.
type ValidationResult struct {
	Success  bool
	Errors   []string
	Warnings []string
}

// Validate checks a serialized PSKT document against the transport
// contract. Missing required fields are errors; legacy field names (a txId
// field standing in for id) are warnings, escalated to errors in strict
// mode.
func Validate(raw []byte, strict bool) ValidationResult {
	result := ValidationResult{}

	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("document: invalid JSON: %v", err))
		return result
	}
	if len(doc) <= 0 {
		result.Errors = append(result.Errors, "document: must not be empty")
		return result
	}

	if _, ok := doc["txId"]; ok {
		result.Warnings = append(
			result.Warnings,
			"txId: legacy field name, the id field is the wallet contract",
		)
	}

	for _, field := range requiredFields {
		if _, ok := doc[field]; ok {
			continue
		}
		if field == "id" {
			if _, legacy := doc["txId"]; legacy {
				result.Errors = append(
					result.Errors, "id: missing (txId is not a substitute)",
				)
				continue
			}
		}
		result.Errors = append(result.Errors, fmt.Sprintf("%s: missing", field))
	}

	validateInputs(doc, &result)
	validateOutputs(doc, &result)

	if strict {
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = nil
	}
	result.Success = len(result.Errors) == 0
	return result
}

func validateInputs(doc map[string]interface{}, result *ValidationResult) {
	rawInputs, ok := doc["inputs"]
	if !ok {
		return
	}
	inputs, ok := rawInputs.([]interface{})
	if !ok {
		result.Errors = append(result.Errors, "inputs: must be an array")
		return
	}
	if len(inputs) <= 0 {
		result.Errors = append(result.Errors, "inputs: must not be empty")
		return
	}

	for i, rawInput := range inputs {
		input, ok := rawInput.(map[string]interface{})
		if !ok {
			result.Errors = append(
				result.Errors, fmt.Sprintf("inputs[%d]: must be an object", i),
			)
			continue
		}

		outpoint, ok := input["previousOutpoint"].(map[string]interface{})
		if !ok {
			result.Errors = append(
				result.Errors,
				fmt.Sprintf("inputs[%d].previousOutpoint: missing", i),
			)
		} else if txid, ok := outpoint["transactionId"].(string); !ok || len(txid) <= 0 {
			result.Errors = append(
				result.Errors,
				fmt.Sprintf("inputs[%d].previousOutpoint.transactionId: missing", i),
			)
		}

		prevOutput, ok := input["previousOutput"].(map[string]interface{})
		if !ok {
			result.Errors = append(
				result.Errors,
				fmt.Sprintf("inputs[%d].previousOutput: missing", i),
			)
			continue
		}
		if value, ok := prevOutput["value"].(float64); !ok || value <= 0 {
			result.Errors = append(
				result.Errors,
				fmt.Sprintf("inputs[%d].previousOutput.value: must be a positive integer", i),
			)
		}
	}
}

func validateOutputs(doc map[string]interface{}, result *ValidationResult) {
	rawOutputs, ok := doc["outputs"]
	if !ok {
		return
	}
	outputs, ok := rawOutputs.([]interface{})
	if !ok {
		result.Errors = append(result.Errors, "outputs: must be an array")
		return
	}
	if len(outputs) <= 0 {
		result.Errors = append(result.Errors, "outputs: must not be empty")
	}
}
