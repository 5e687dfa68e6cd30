package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"supplierflow/internal/review"
	"supplierflow/internal/submission/models"
	dErrors "supplierflow/pkg/domain-errors"
)

// Review bodies are checked for shape here. Decision rules (which
// combinations are allowed, what a rejection needs) stay with the review
// handlers so the CLI and the HTTP API agree.
const signoffProperties = `
	"signer":    {"type": "string", "minLength": 1, "maxLength": 256},
	"rationale": {"type": "string", "maxLength": 4000}`

var reviewSchemas = map[models.Role]string{
	models.RolePBP: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["signer", "decision"],
		"properties": {` + signoffProperties + `,
			"decision": {"enum": ["approved", "rejected", "info_required"]},
			"requested_information": {"type": "string", "maxLength": 4000}
		}
	}`,
	models.RoleProcurement: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["signer", "decision"],
		"properties": {` + signoffProperties + `,
			"decision": {"enum": ["approved", "rejected"]},
			"supplier_classification": {"enum": ["standard", "opw_ir35"]}
		}
	}`,
	models.RoleOPW: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["signer"],
		"properties": {` + signoffProperties + `,
			"employment_status": {"enum": ["employed", "self_employed", "rejected"]},
			"ir35_determination": {"enum": ["inside", "outside", "rejected"]},
			"contract_required": {"enum": ["yes", "no"]},
			"sds_issued": {"type": "boolean"},
			"sds_issued_at": {"type": "string", "format": "date-time"}
		},
		"not": {"required": ["employment_status", "ir35_determination"]}
	}`,
	models.RoleContractDrafter: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["signer", "decision"],
		"properties": {` + signoffProperties + `,
			"decision": {"enum": ["approved", "rejected"]},
			"signed_agreement_reference": {"type": "string", "maxLength": 256}
		}
	}`,
	models.RoleAPControl: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["signer", "decision"],
		"properties": {` + signoffProperties + `,
			"decision": {"enum": ["approved", "rejected"]},
			"bank_details_verified": {"type": "boolean"},
			"company_details_verified": {"type": "boolean"},
			"supplier_number": {"type": "string", "maxLength": 64}
		}
	}`,
}

// reviewValidator holds one compiled schema per reviewer role.
type reviewValidator struct {
	schemas map[models.Role]*jsonschema.Schema
}

func newReviewValidator() (*reviewValidator, error) {
	v := &reviewValidator{schemas: make(map[models.Role]*jsonschema.Schema, len(reviewSchemas))}
	for role, schema := range reviewSchemas {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		url := "mem://reviews/" + string(role) + ".json"
		if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
			return nil, fmt.Errorf("add %s review schema: %w", role, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s review schema: %w", role, err)
		}
		v.schemas[role] = compiled
	}
	return v, nil
}

// decode validates body against the role's schema and decodes it into the
// role's request type.
func (v *reviewValidator) decode(role models.Role, body []byte) (review.Request, error) {
	schema, ok := v.schemas[role]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown reviewer role "+string(role))
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body: "+err.Error())
	}
	if err := schema.Validate(doc); err != nil {
		return nil, dErrors.NewWithDetails(dErrors.CodeBadRequest, "review does not match the "+string(role)+" schema", schemaErrors(err))
	}

	switch role {
	case models.RolePBP:
		return decodeInto[review.PBPRequest](body)
	case models.RoleProcurement:
		return decodeInto[review.ProcurementRequest](body)
	case models.RoleOPW:
		return decodeInto[review.OPWRequest](body)
	case models.RoleContractDrafter:
		return decodeInto[review.ContractRequest](body)
	default:
		return decodeInto[review.APRequest](body)
	}
}

func decodeInto[T review.Request](body []byte) (review.Request, error) {
	var req T
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid review body: "+err.Error())
	}
	return req, nil
}

// schemaErrors flattens the validation tree into "location: message" lines.
func schemaErrors(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
