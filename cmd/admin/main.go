package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"careerVault/internal/auth"
	"careerVault/internal/config"
	"careerVault/internal/database"
)

// admin 用于在本地或预发环境直接预置用户，绕过 Google 登录。
func main() {
	var (
		email   = flag.String("email", "", "用户邮箱（必填）")
		name    = flag.String("name", "", "显示名称（可选）")
		issue   = flag.Bool("issue-token", false, "同时签发会话令牌（需要 AUTH_SESSION_SECRET）")
		dbHost  = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort  = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName  = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser  = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass  = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" || !strings.Contains(e, "@") {
		log.Fatal("missing or invalid required flag: --email")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	var user database.User
	switch err := db.Where("email = ?", e).First(&user).Error; {
	case err == nil:
		if n := strings.TrimSpace(*name); n != "" && n != user.Name {
			if err := db.Model(&user).Update("name", n).Error; err != nil {
				log.Fatalf("update user: %v", err)
			}
		}
		fmt.Printf("用户已存在: %s (%s)\n", user.Email, user.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = database.User{Email: e, Name: strings.TrimSpace(*name)}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("create user: %v", err)
		}
		fmt.Printf("已创建用户: %s (%s)\n", user.Email, user.ID)
	default:
		log.Fatalf("query user: %v", err)
	}

	if !*issue {
		return
	}

	secret := os.Getenv("AUTH_SESSION_SECRET")
	ttl := 24 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("AUTH_SESSION_TTL")); raw != "" {
		if ttl, err = time.ParseDuration(raw); err != nil {
			log.Fatalf("parse AUTH_SESSION_TTL: %v", err)
		}
	}
	sessions, err := auth.NewSessionManager(secret, ttl)
	if err != nil {
		log.Fatalf("init session manager: %v", err)
	}
	token, err := sessions.Issue(user.ID, user.Email)
	if err != nil {
		log.Fatalf("issue session token: %v", err)
	}
	fmt.Printf("会话令牌（%s 内有效）:\n%s\n", ttl, token)
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	envOr := func(v string, keys ...string) string {
		for _, k := range keys {
			if strings.TrimSpace(v) != "" {
				return v
			}
			v = os.Getenv(k)
		}
		return v
	}

	host = envOr(host, "DATABASE_HOST")
	name = envOr(name, "POSTGRES_DB", "DB_NAME")
	user = envOr(user, "POSTGRES_USER", "DB_USER")
	password = envOr(password, "POSTGRES_PASSWORD", "DB_PASSWORD")
	sslmode = envOr(sslmode, "DATABASE_SSLMODE")

	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
