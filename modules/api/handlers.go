package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/barachat/domain/chat"
	"github.com/example/barachat/modules/auth"
	"github.com/example/barachat/modules/files"
	"github.com/example/barachat/modules/history"
)

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	m.app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("BaraChat Server Active")
	})
	m.app.Get("/health", m.handleHealth)

	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleChatStream))

	api := m.app.Group("/api")
	api.Post("/register", m.handleRegister)
	api.Post("/login", m.handleLogin)
	api.Get("/download/:filename", m.handleDownload)
	api.Get("/history/:room", m.handleHistory)

	protected := api.Group("")
	protected.Use(AuthMiddleware(m.authAdapter))
	protected.Get("/user", m.handleUserInfo)
	protected.Post("/upload", m.handleUpload)
	protected.Get("/files/:room", m.handleListFiles)
}

// handleHealth handles GET /health.
func (m *Module) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Service: "BaraChat",
		Details: map[string]any{
			"connections": m.registry.ConnCount(),
			"rooms":       m.registry.RoomCount(),
		},
	})
}

// handleRegister handles POST /api/register.
func (m *Module) handleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid request body",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Username and password are required",
		})
	}

	resp, err := m.authAdapter.Register(c.UserContext(), req.Username, req.Password, req.Email)
	if err != nil {
		return m.registerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(RegisterResponse{
		UserID:   resp.ID,
		Username: resp.Username,
	})
}

func (m *Module) registerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: "Username already taken",
		})
	case errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
		})
	default:
		m.logger.WithError(err).Error("Registration failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Registration failed",
		})
	}
}

// handleLogin handles POST /api/login. A credential mismatch returns 401
// with no token key in the body.
func (m *Module) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid request body",
		})
	}

	token, err := m.authAdapter.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(LoginResponse{})
		}
		m.logger.WithError(err).Error("Login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Login failed",
		})
	}
	return c.JSON(LoginResponse{Token: token})
}

// handleUserInfo handles GET /api/user.
func (m *Module) handleUserInfo(c *fiber.Ctx) error {
	claims := claimsFromCtx(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: "Authentication required",
		})
	}
	return c.JSON(UserInfoResponse{
		UserID:   claims.UserID,
		Username: claims.Username,
	})
}

// handleUpload handles POST /api/upload. Expects multipart form fields
// "file" and "room".
func (m *Module) handleUpload(c *fiber.Ctx) error {
	claims := claimsFromCtx(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: "Authentication required",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Missing file or room",
		})
	}
	room := c.FormValue("room")
	if room == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Missing file or room",
		})
	}

	if fileHeader.Size > m.filesService.MaxSize() {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error: "File too large (max " + strconv.FormatInt(m.filesService.MaxSize(), 10) + " bytes)",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid multipart body",
		})
	}
	defer src.Close()

	record, err := m.filesService.Upload(files.UploadInput{
		OriginalName:     fileHeader.Filename,
		ContentType:      fileHeader.Header.Get("Content-Type"),
		Room:             room,
		UploaderID:       claims.UserID,
		UploaderUsername: claims.Username,
		Reader:           src,
	})
	if err != nil {
		switch {
		case errors.Is(err, files.ErrTooLarge):
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
				Error: "File too large (max " + strconv.FormatInt(m.filesService.MaxSize(), 10) + " bytes)",
			})
		case errors.Is(err, files.ErrEmptyName):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Missing file or room",
			})
		default:
			m.logger.WithError(err).Error("Upload failed", "file", fileHeader.Filename)
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error: "Upload failed",
			})
		}
	}

	m.logger.Info("File uploaded", "file", record.OriginalName, "user", claims.Username, "room", room)
	return c.JSON(UploadResponse{
		Success:  true,
		FileURL:  "/api/download/" + record.StoredName,
		FileName: record.OriginalName,
		FileSize: record.Size,
	})
}

// handleDownload handles GET /api/download/:filename.
func (m *Module) handleDownload(c *fiber.Ctx) error {
	filename := c.Params("filename")
	rc, record, err := m.filesService.Open(filename)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error: "File not found",
			})
		}
		m.logger.WithError(err).Error("Download failed", "file", filename)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Download failed",
		})
	}

	if record != nil {
		c.Set(fiber.HeaderContentType, record.ContentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+record.OriginalName+`"`)
	}
	return c.SendStream(rc)
}

// handleHistory handles GET /api/history/:room.
func (m *Module) handleHistory(c *fiber.Ctx) error {
	room := c.Params("room")
	limit := history.DefaultLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= history.MaxLimit {
			limit = parsed
		}
	}

	messages, err := m.historyAdapter.Recent(c.UserContext(), room, limit)
	if err != nil {
		m.logger.WithError(err).Error("History query failed", "room", room)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Failed to load history",
		})
	}

	resp := HistoryResponse{Room: room, Messages: make([]chat.Envelope, 0, len(messages))}
	for _, msg := range messages {
		env := chat.Envelope{
			Kind:      msg.Kind,
			Room:      msg.Room,
			User:      msg.Username,
			Text:      msg.Content,
			Timestamp: msg.Timestamp,
			FileURL:   msg.FileURL,
		}
		if env.Kind == "" {
			env.Kind = chat.KindText
		}
		resp.Messages = append(resp.Messages, env)
	}
	return c.JSON(resp)
}

// handleListFiles handles GET /api/files/:room.
func (m *Module) handleListFiles(c *fiber.Ctx) error {
	room := c.Params("room")
	limit := 0
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	infos, err := m.filesMeta.ListByRoom(c.UserContext(), room, limit)
	if err != nil {
		m.logger.WithError(err).Error("File listing failed", "room", room)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Failed to list files",
		})
	}
	return c.JSON(fiber.Map{"room": room, "files": infos})
}
