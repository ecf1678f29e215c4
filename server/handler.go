package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/propella-labs/go-propella/service/auth"
	"github.com/propella-labs/go-propella/service/nft"
	"github.com/propella-labs/go-propella/service/persist"
	"github.com/propella-labs/go-propella/service/persist/postgres"
	"github.com/propella-labs/go-propella/service/user"
	"github.com/propella-labs/go-propella/util"
)

func handlersInit(router *gin.Engine, repos *postgres.Repositories, nftService *nft.Service, otps *auth.OTPStore, sender user.MessageSender) *gin.Engine {
	router.GET("/alive", util.HealthCheckHandler())

	usersGroup := router.Group("/users")
	usersGroup.POST("", createUser(repos))
	usersGroup.GET("/:user_id", getUser(repos))
	usersGroup.POST("/:user_id/wallet", setWallet(repos))
	usersGroup.GET("/:user_id/nfts", getUserNFTs(nftService))
	usersGroup.GET("/:user_id/transfers", getUserTransfers(nftService))

	nftsGroup := router.Group("/nfts")
	nftsGroup.POST("", mintNFT(nftService))
	nftsGroup.POST("/:nft_id/transfer", transferNFT(nftService))
	nftsGroup.GET("/:nft_id/transfers", getNFTTransfers(nftService))

	router.POST("/send-otp", sendOTP(repos, otps, sender))
	router.POST("/verify-otp", verifyOTP(repos, otps))

	return router
}

func createUser(repos *postgres.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input user.CreateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		created, err := user.CreateUser(c, input, repos.UserRepository)
		if err != nil {
			status := http.StatusInternalServerError
			switch err.(type) {
			case persist.ErrAadhaarAlreadyRegistered:
				status = http.StatusConflict
			default:
				if isValidationErr(err) {
					status = http.StatusBadRequest
				}
			}
			util.ErrResponse(c, status, err)
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}

func getUser(repos *postgres.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := user.GetUser(c, persist.DBID(c.Param("user_id")), repos.UserRepository)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &persist.ErrUserNotFound{}) {
				status = http.StatusNotFound
			}
			util.ErrResponse(c, status, err)
			return
		}

		c.JSON(http.StatusOK, found)
	}
}

type setWalletInput struct {
	Address persist.EthereumAddress `json:"address" binding:"required"`
}

func setWallet(repos *postgres.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input setWalletInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		userID := persist.DBID(c.Param("user_id"))
		exists, err := repos.UserRepository.Exists(c, userID)
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}
		if !exists {
			util.ErrResponse(c, http.StatusNotFound, persist.ErrUserNotFound{ID: userID})
			return
		}

		wallet, err := repos.WalletRepository.Upsert(c, userID, input.Address)
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, wallet)
	}
}

func mintNFT(nftService *nft.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := c.PostForm("payload")
		if payload == "" {
			util.ErrResponse(c, http.StatusBadRequest, errors.New("missing payload field"))
			return
		}

		var input nft.MintInput
		if err := json.Unmarshal([]byte(payload), &input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		if input.Name == "" || input.OwnerID == "" {
			util.ErrResponse(c, http.StatusBadRequest, errors.New("name and owner_id are required"))
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, errors.New("missing image file"))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		defer file.Close()

		input.Image, err = io.ReadAll(file)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		result, err := nftService.Mint(c, input)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &persist.ErrUserNotFound{}) {
				status = http.StatusBadRequest
			}
			util.ErrResponse(c, status, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func getUserNFTs(nftService *nft.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		nfts, err := nftService.GetByOwner(c, persist.DBID(c.Param("user_id")))
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, nfts)
	}
}

func transferNFT(nftService *nft.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input nft.TransferInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		input.NFTID = persist.DBID(c.Param("nft_id"))

		result, err := nftService.Transfer(c, input)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.As(err, &persist.ErrNFTNotFoundByID{}):
				status = http.StatusNotFound
			case errors.As(err, &persist.ErrUserNotFound{}):
				status = http.StatusBadRequest
			case errors.As(err, &persist.ErrTransferConflict{}):
				status = http.StatusConflict
			}
			util.ErrResponse(c, status, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getNFTTransfers(nftService *nft.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := nftService.GetTransferHistory(c, persist.DBID(c.Param("nft_id")))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &persist.ErrNFTNotFoundByID{}) {
				status = http.StatusNotFound
			}
			util.ErrResponse(c, status, err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func getUserTransfers(nftService *nft.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := nftService.GetUserTransferHistory(c, persist.DBID(c.Param("user_id")))
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func sendOTP(repos *postgres.Repositories, otps *auth.OTPStore, sender user.MessageSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input user.SendOTPInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		output, err := user.SendOTP(c, input, repos.UserRepository, otps, sender)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.As(err, &persist.ErrUserNotFound{}):
				status = http.StatusNotFound
			case errors.Is(err, user.ErrNoPhoneNumber):
				status = http.StatusBadRequest
			}
			util.ErrResponse(c, status, err)
			return
		}

		c.JSON(http.StatusOK, output)
	}
}

func verifyOTP(repos *postgres.Repositories, otps *auth.OTPStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input user.VerifyOTPInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		output, err := user.VerifyOTP(c, input, repos.UserRepository, otps)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, user.ErrInvalidOTP), errors.Is(err, user.ErrNoPendingOTP), errors.Is(err, user.ErrOTPExpired):
				status = http.StatusUnauthorized
			case errors.As(err, &persist.ErrUserNotFound{}):
				status = http.StatusNotFound
			}
			util.ErrResponse(c, status, err)
			return
		}

		c.JSON(http.StatusOK, output)
	}
}

func isValidationErr(err error) bool {
	var verr validator.ValidationErrors
	return errors.As(err, &verr)
}
