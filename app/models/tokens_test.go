package models

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/jwtauth"
)

func TestAccessTokenEncode(t *testing.T) {
	auth := jwtauth.New("HS256", []byte("secret"), nil)

	token := NewAccessToken("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	tokenString, err := token.Encode(auth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokenString == "" {
		t.Fatal("expected a signed token string")
	}

	decoded, err := auth.Decode(tokenString)
	if err != nil {
		t.Fatalf("failed to decode the token: %v", err)
	}
	claims, ok := decoded.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type: %T", decoded.Claims)
	}
	if claims["wallet"] != token.Wallet {
		t.Fatalf("unexpected wallet claim: %v", claims["wallet"])
	}
	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		t.Fatalf("unexpected exp claim: %v", claims["exp"])
	}
}
