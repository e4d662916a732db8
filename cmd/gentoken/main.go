// gentoken mints a signed access token for local development and testing:
//
//	go run ./cmd/gentoken -user ana -role supervisor -hours 8
//
// The secret is read from JWT_SECRET (matching the server config).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cortepos/internal/middleware"
)

func main() {
	user := flag.String("user", "dev", "username claim")
	role := flag.String("role", "admin", "role claim: cashier | supervisor | admin")
	hours := flag.Int("hours", 8, "token lifetime in hours")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:   uuid.NewString(),
		Username: *user,
		Role:     *role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(*hours) * time.Hour)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
