package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/eventdesk/dashboard/pkg/auth"
	"github.com/eventdesk/dashboard/pkg/content"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/validate"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// readUpload reads the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request) (content.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageSize+maxJSONBody)
	if err := r.ParseMultipartForm(media.MaxImageSize + maxJSONBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return content.Upload{}, err
		}
		return content.Upload{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	file, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return content.Upload{}, validate.Field("file", i18n.ImageMissing)
	}
	if err != nil {
		return content.Upload{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, media.MaxImageSize+1))
	if err != nil {
		return content.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return content.Upload{Filename: hdr.Filename, ContentType: hdr.Header.Get("Content-Type"), Data: data}, nil
}

type orderRequest struct {
	OrderIndex *int   `json:"order_index"`
	Type       string `json:"type"`
}

func (o orderRequest) index() (int, error) {
	if o.OrderIndex == nil {
		return 0, validate.Field("order_index", i18n.Required, "order_index")
	}
	return *o.OrderIndex, nil
}

type messageResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (s *Server) deleted(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: s.errs.message(r, i18n.Deleted)})
}

// auth

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in auth.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	acct, err := s.deps.Auth.Signup(r.Context(), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string `json:"message"`
		Account any    `json:"account"`
	}{s.errs.message(r, i18n.Registered), acct})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	if s.deps.Logins != nil {
		ok, err := s.deps.Logins.Allow(r.Context(), "login:"+auth.NormalizeEmail(in.Email), LoginPolicy, 1)
		if err == nil && !ok {
			s.errs.TooManyRequests(w, r, 12)
			return
		}
	}
	sess, err := s.deps.Auth.Login(r.Context(), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		auth.Session
	}{s.errs.message(r, i18n.LoggedIn), sess})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r)
	if err := s.deps.Auth.Logout(r.Context(), token); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: s.errs.message(r, i18n.LoggedOut)})
}

// speakers

func (s *Server) listSpeakers(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Content.Speakers.List(r.Context())
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getSpeaker(w http.ResponseWriter, r *http.Request) {
	sp, err := s.deps.Content.Speakers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) createSpeaker(w http.ResponseWriter, r *http.Request) {
	var in content.SpeakerInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	sp, err := s.deps.Content.Speakers.Create(r.Context(), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) updateSpeaker(w http.ResponseWriter, r *http.Request) {
	var in content.SpeakerInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	sp, err := s.deps.Content.Speakers.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) deleteSpeaker(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Content.Speakers.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	s.deleted(w, r)
}

func (s *Server) reorderSpeaker(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	idx, err := req.index()
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	list, err := s.deps.Content.Speakers.Reorder(r.Context(), r.PathValue("id"), idx)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) uploadSpeakerPhoto(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	url, err := s.deps.Content.Speakers.UploadPhoto(r.Context(), up)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}

// partners

func (s *Server) listPartners(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Content.Partners.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getPartner(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Content.Partners.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createPartner(w http.ResponseWriter, r *http.Request) {
	var in content.PartnerInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	p, err := s.deps.Content.Partners.Create(r.Context(), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePartner(w http.ResponseWriter, r *http.Request) {
	var patch content.PartnerPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	p, err := s.deps.Content.Partners.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePartner(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Content.Partners.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	s.deleted(w, r)
}

func (s *Server) reorderPartner(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	idx, err := req.index()
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	list, err := s.deps.Content.Partners.Reorder(r.Context(), r.PathValue("id"), idx, req.Type)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) uploadPartnerLogo(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	url, err := s.deps.Content.Partners.UploadLogo(r.Context(), up)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}

// team

func (s *Server) listTeam(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Content.Teams.List(r.Context())
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getTeamMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Content.Teams.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) createTeamMember(w http.ResponseWriter, r *http.Request) {
	var in content.TeamInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	m, err := s.deps.Content.Teams.Create(r.Context(), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) updateTeamMember(w http.ResponseWriter, r *http.Request) {
	var patch content.TeamPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	m, err := s.deps.Content.Teams.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteTeamMember(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Content.Teams.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	s.deleted(w, r)
}

func (s *Server) reorderTeamMember(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	idx, err := req.index()
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	list, err := s.deps.Content.Teams.Reorder(r.Context(), r.PathValue("id"), idx)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) uploadTeamPhoto(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	url, err := s.deps.Content.Teams.UploadPhoto(r.Context(), up)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}

// faq

func (s *Server) listFAQ(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Content.FAQ.List(r.Context())
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createFAQ(w http.ResponseWriter, r *http.Request) {
	var in content.FAQInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	f, err := s.deps.Content.FAQ.Create(r.Context(), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) updateFAQ(w http.ResponseWriter, r *http.Request) {
	var in content.FAQInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	f, err := s.deps.Content.FAQ.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) deleteFAQ(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Content.FAQ.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	s.deleted(w, r)
}

// about

func (s *Server) listAbout(w http.ResponseWriter, r *http.Request) {
	slots, err := s.deps.Content.About.Slots(r.Context())
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) uploadAbout(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		s.errs.Error(w, r, validate.Field("slot", i18n.InvalidSlot, s.deps.Content.About.SlotCount()-1))
		return
	}
	up, err := readUpload(w, r)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	img, err := s.deps.Content.About.Upload(r.Context(), slot, r.FormValue("name"), up)
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (s *Server) deleteAbout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Content.About.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errs.Error(w, r, err)
		return
	}
	s.deleted(w, r)
}

// admin

func (s *Server) repairOrdering(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Content.Repair.Repair(r.Context(), r.PathValue("collection"))
	if err != nil {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) verifyOrdering(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	err := s.deps.Content.Repair.Verify(r.Context(), collection)
	var broken *ordering.InvariantError
	if err != nil && !errors.As(err, &broken) {
		s.errs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Collection string                   `json:"collection"`
		OK         bool                     `json:"ok"`
		Broken     *ordering.InvariantError `json:"broken,omitempty"`
	}{collection, broken == nil, broken})
}
