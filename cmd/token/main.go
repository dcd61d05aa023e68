// Command token prints an operator token for the settings API.
//
//	token <env> <username>
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"gitlab.com/fbworkers.net/internal/adapter/crypto"
	"gitlab.com/fbworkers.net/internal/config"
	"gitlab.com/fbworkers.net/internal/domain"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <env> <username>", os.Args[0])
	}
	if err := godotenv.Load(os.Args[1] + ".env"); err != nil {
		log.Fatalf("Error loading %s.env file", os.Args[1])
	}

	jwtService := crypto.NewJWTService(config.NewJwtConfig())
	token, err := jwtService.IssueOperatorToken(context.Background(), os.Args[2], domain.PermissionSettingsWrite)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
