package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatriculaRule(t *testing.T) {
	RegisterValidations()
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	valid := []string{"A01234", "20231234567", "P002345", "AD001"}
	for _, m := range valid {
		assert.NoError(t, engine.Var(m, "matricula"), m)
	}

	invalid := []string{"abc", "con espacios", "con-guion", "áéí123", "123456789012345678901"}
	for _, m := range invalid {
		assert.Error(t, engine.Var(m, "matricula"), m)
	}
}
