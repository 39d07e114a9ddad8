package consultants

import (
	"net/http"
	"path/filepath"

	"mindline/db"
	"mindline/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const photoUploadDir = "static/consultantpic"

// UploadPhoto handles POST /consultants/:id/photo: stores the original and a
// 300px-wide thumbnail.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	consultantID := ps.ByName("id")

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "missing photo file")
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "failed to decode image")
		return
	}

	thumbDir := filepath.Join(photoUploadDir, "thumb")
	if err := utils.EnsureDir(photoUploadDir); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "upload dir error")
		return
	}
	if err := utils.EnsureDir(thumbDir); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "upload dir error")
		return
	}

	fileName := consultantID + ".jpg"
	originalPath := filepath.Join(photoUploadDir, fileName)
	thumbnailPath := filepath.Join(thumbDir, fileName)

	if err := imaging.Save(img, originalPath); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to save image")
		return
	}
	thumbImg := imaging.Resize(img, 300, 0, imaging.Lanczos)
	if err := imaging.Save(thumbImg, thumbnailPath); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to save thumbnail")
		return
	}

	photoURL := "/static/consultantpic/" + fileName
	thumbURL := "/static/consultantpic/thumb/" + fileName
	_, err = db.ConsultantsCollection.UpdateOne(r.Context(),
		bson.M{"consultantId": consultantID},
		bson.M{"$set": bson.M{"photo": photoURL, "thumb": thumbURL}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"photo": photoURL,
		"thumb": thumbURL,
	})
}
