package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// PassphraseHeader carries the shared operator passphrase
const PassphraseHeader = "X-Passphrase"

// Gate checks the shared operator passphrase. Only a bcrypt hash is kept in
// memory.
type Gate struct {
	hash []byte
}

// NewGate builds a gate from a bcrypt hash or, when hash is empty, from the
// plain passphrase hashed with cost
func NewGate(passphrase, hash string, cost int) (*Gate, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, err
		}
		return &Gate{hash: []byte(hash)}, nil
	}
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: h}, nil
}

// Check reports whether pass matches
func (g *Gate) Check(pass string) bool {
	if pass == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(pass)) == nil
}

// Middleware rejects requests without a valid passphrase in the
// X-Passphrase header or the pass query parameter
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		pass := c.GetHeader(PassphraseHeader)
		if pass == "" {
			pass = c.Query("pass")
		}
		if !g.Check(pass) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
