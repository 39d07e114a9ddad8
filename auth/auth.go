package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mindline/db"
	"mindline/globals"
	"mindline/middleware"
	"mindline/models"
	"mindline/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

func issueToken(user models.User) (string, error) {
	claims := middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.UserID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(globals.JwtSecret)
}

func Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if input.Username == "" || input.Email == "" || len(input.Password) < 8 {
		utils.RespondWithError(w, http.StatusBadRequest, "username, email and a password of at least 8 characters are required")
		return
	}

	role := input.Role
	if role != models.RoleConsultant {
		role = models.RoleCustomer
	}

	ctx := r.Context()
	count, err := db.UserCollection.CountDocuments(ctx, bson.M{"username": input.Username})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if count > 0 {
		utils.RespondWithError(w, http.StatusConflict, "username already taken")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Register: bcrypt error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := models.User{
		UserID:    utils.GenerateID(16),
		Username:  input.Username,
		Email:     input.Email,
		Password:  string(hashed),
		Role:      []string{role},
		CreatedAt: time.Now(),
	}
	if _, err := db.UserCollection.InsertOne(ctx, user); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"user": user})
}

func Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var user models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{"username": input.Username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueToken(user)
	if err != nil {
		log.Printf("Login: token issue failed for %s: %v", user.UserID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"token": token, "user": user})
}

// RefreshToken re-issues a token for a still-valid session.
func RefreshToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, err := middleware.ValidateJWT(r.Header.Get("Authorization"))
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	token, err := issueToken(models.User{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"token": token})
}

func Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Tokens are short-lived; logout is client-side discard.
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "logged out"})
}
